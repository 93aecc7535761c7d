// Package corpus builds and publishes corpus generations from raw postings.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/metrics"
	"github.com/kailas-cloud/jobmatch/internal/repository/corpus"
	"github.com/kailas-cloud/jobmatch/internal/usecase/classify"
)

// Backends. The redis backend also maintains a RediSearch index per version.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultBatchSize is the number of postings embedded per provider call.
const DefaultBatchSize = 64

// Options configure ingestion.
type Options struct {
	Backend   string
	BatchSize int
	// RequestsPerSecond paces embedding batches; <= 0 disables pacing.
	RequestsPerSecond float64
	HNSW              corpus.HNSWConfig
	Model             string
}

// Report summarizes one ingestion run.
type Report struct {
	Version     string        `json:"version"`
	Retired     string        `json:"retired,omitempty"`
	Read        int           `json:"read"`
	Ingested    int           `json:"ingested"`
	Skipped     []Skip        `json:"skipped,omitempty"`
	Dimensions  int           `json:"dimensions"`
	Labels      int           `json:"labels"`
	TotalTokens int           `json:"total_tokens"`
	Duration    time.Duration `json:"duration"`
}

// Service ingests postings into a new corpus version and publishes it.
type Service struct {
	store      Store
	embedder   Embedder
	classifier Classifier // optional
	limiter    *rate.Limiter
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
	newVersion func() string
}

// New creates an ingestion service. classifier may be nil; rows without a
// known industry are then skipped.
func New(store Store, embedder Embedder, classifier Classifier, opts Options, logger *zap.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Backend == "" {
		opts.Backend = BackendMemory
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Service{
		store:      store,
		embedder:   embedder,
		classifier: classifier,
		limiter:    rate.NewLimiter(limit, 1),
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		newVersion: uuid.NewString,
	}
}

type pending struct {
	row   Row
	text  string
	label label.Label
}

// Ingest reads JSON Lines postings from r, embeds them and publishes a new
// corpus version. The version two generations back is deleted afterwards.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (Report, error) {
	start := s.now()
	rows, skips, err := ReadRows(r)
	if err != nil {
		return Report{}, err
	}
	report := Report{Read: len(rows) + len(skips), Skipped: skips}

	items, more := s.prepare(ctx, rows)
	report.Skipped = append(report.Skipped, more...)
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	postings, tokens, more, err := s.embed(ctx, items)
	if err != nil {
		return Report{}, err
	}
	report.Skipped = append(report.Skipped, more...)
	report.TotalTokens = tokens

	metrics.IngestRowsTotal.WithLabelValues("skipped").Add(float64(len(report.Skipped)))
	if len(postings) == 0 {
		return report, fmt.Errorf("no valid postings among %d rows: %w", report.Read, domain.ErrInvalidPosting)
	}

	dim := postings[0].Dimensions()
	for i := range postings {
		if postings[i].Dimensions() != dim {
			return report, fmt.Errorf("job %s: %w", postings[i].ID(),
				domain.NewDimensionMismatch(dim, postings[i].Dimensions()))
		}
	}

	version := s.newVersion()
	centroids := classify.ComputeCentroids(postings)
	if err := s.write(ctx, version, dim, postings, centroids); err != nil {
		metrics.IngestRowsTotal.WithLabelValues("failed").Add(float64(len(postings)))
		s.cleanup(version)
		return report, err
	}

	retired, err := s.store.Publish(ctx, version)
	if err != nil {
		s.cleanup(version)
		return report, fmt.Errorf("publish: %w", err)
	}
	if s.opts.Backend == BackendRedis {
		if err := s.store.PointAlias(ctx, version); err != nil {
			s.logger.Warn("Index alias update failed", zap.String("version", version), zap.Error(err))
		}
	}
	if retired != "" {
		if err := s.store.DeleteVersion(ctx, retired); err != nil {
			s.logger.Warn("Retired corpus cleanup failed", zap.String("version", retired), zap.Error(err))
		}
	}
	metrics.IngestRowsTotal.WithLabelValues("ok").Add(float64(len(postings)))

	report.Version = version
	report.Retired = retired
	report.Ingested = len(postings)
	report.Dimensions = dim
	report.Labels = len(centroids)
	report.Duration = s.now().Sub(start)

	s.logger.Info("Corpus published",
		zap.String("version", version),
		zap.String("retired", retired),
		zap.Int("read", report.Read),
		zap.Int("ingested", report.Ingested),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("total_tokens", tokens),
		zap.Duration("took", report.Duration),
	)
	return report, nil
}

// prepare validates rows, drops duplicates and resolves labels.
func (s *Service) prepare(ctx context.Context, rows []Row) ([]pending, []Skip) {
	var (
		out   = make([]pending, 0, len(rows))
		skips []Skip
		seen  = make(map[string]struct{}, len(rows))
	)
	for _, row := range rows {
		if ctx.Err() != nil {
			return nil, nil
		}
		id := strings.TrimSpace(row.JobID)
		row.JobID = id
		text := job.ComposeText(row.Title, row.Description)
		switch {
		case id == "":
			skips = append(skips, Skip{Line: row.line, Reason: SkipMissingID})
			continue
		case text == "":
			skips = append(skips, Skip{Line: row.line, JobID: id, Reason: SkipEmptyText})
			continue
		}
		if _, dup := seen[id]; dup {
			skips = append(skips, Skip{Line: row.line, JobID: id, Reason: SkipDuplicate})
			continue
		}
		seen[id] = struct{}{}

		l, skip := s.resolveLabel(ctx, row, text)
		if skip != nil {
			skips = append(skips, *skip)
			continue
		}
		out = append(out, pending{row: row, text: text, label: l})
	}
	return out, skips
}

func (s *Service) resolveLabel(ctx context.Context, row Row, text string) (label.Label, *Skip) {
	if row.Industry != "" {
		if l, err := label.Parse(row.Industry); err == nil {
			return l, nil
		}
	}
	if s.classifier == nil {
		return 0, &Skip{Line: row.line, JobID: row.JobID, Reason: SkipUnlabeled, Detail: row.Industry}
	}
	dist, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return 0, &Skip{Line: row.line, JobID: row.JobID, Reason: SkipClassifier, Detail: err.Error()}
	}
	l, _ := dist.Primary()
	return l, nil
}

// embed vectorizes items in paced batches. A provider failure aborts the run.
func (s *Service) embed(ctx context.Context, items []pending) ([]job.Posting, int, []Skip, error) {
	postings := make([]job.Posting, 0, len(items))
	var (
		skips  []Skip
		tokens int
	)
	for offset := 0; offset < len(items); offset += s.opts.BatchSize {
		end := min(offset+s.opts.BatchSize, len(items))
		batch := items[offset:end]

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, 0, nil, fmt.Errorf("pace embedding: %w", err)
		}
		texts := make([]string, len(batch))
		for i, it := range batch {
			texts[i] = it.text
		}
		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("embed rows %d-%d: %w", offset, end-1, err)
		}
		if len(res.Embeddings) != len(batch) {
			return nil, 0, nil, fmt.Errorf("embed rows %d-%d: got %d vectors: %w",
				offset, end-1, len(res.Embeddings), domain.ErrEmbeddingProviderError)
		}
		tokens += res.TotalTokens

		for i, it := range batch {
			p, err := job.New(it.row.JobID, it.row.CompanyID, strings.TrimSpace(it.row.Title), it.text, it.label, res.Embeddings[i])
			if err != nil {
				skips = append(skips, Skip{Line: it.row.line, JobID: it.row.JobID, Reason: SkipInvalid, Detail: err.Error()})
				continue
			}
			postings = append(postings, p)
		}
		s.logger.Debug("Embedded batch", zap.Int("offset", offset), zap.Int("size", len(batch)))
	}
	return postings, tokens, skips, nil
}

func (s *Service) write(
	ctx context.Context, version string, dim int,
	postings []job.Posting, centroids map[label.Label][]float32,
) error {
	// index first so every posting is indexed as it is written
	if s.opts.Backend == BackendRedis {
		if err := s.store.CreateIndex(ctx, version, dim, s.opts.HNSW); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	if err := s.store.SavePostings(ctx, version, postings); err != nil {
		return fmt.Errorf("save postings: %w", err)
	}
	if err := s.store.SaveCentroids(ctx, version, centroids); err != nil {
		return fmt.Errorf("save centroids: %w", err)
	}
	meta := corpus.Meta{
		Version:    version,
		Dimensions: dim,
		Documents:  len(postings),
		Model:      s.opts.Model,
		CreatedAt:  s.now(),
	}
	if err := s.store.SaveMeta(ctx, meta); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}

// cleanup removes a half-written version. It runs detached from the request
// context, which may already be cancelled.
func (s *Service) cleanup(version string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.store.DeleteVersion(ctx, version); err != nil {
		s.logger.Error("Partial corpus cleanup failed", zap.String("version", version), zap.Error(err))
	}
}

// Current returns the metadata of the published version, or
// domain.ErrNotFound when nothing has been ingested.
func (s *Service) Current(ctx context.Context) (corpus.Meta, error) {
	version, err := s.store.CurrentVersion(ctx)
	if err != nil {
		return corpus.Meta{}, fmt.Errorf("current version: %w", err)
	}
	if version == "" {
		return corpus.Meta{}, fmt.Errorf("corpus: %w", domain.ErrNotFound)
	}
	m, err := s.store.LoadMeta(ctx, version)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return corpus.Meta{Version: version}, nil
		}
		return corpus.Meta{}, err
	}
	return m, nil
}
