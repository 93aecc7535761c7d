// Package evaluation replays labelled resumes through the recommendation
// pipeline and scores the returned lists.
package evaluation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain/evaluation"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/request"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/result"
	"github.com/kailas-cloud/jobmatch/internal/logger"
)

// Recommender is the recommendation orchestrator.
type Recommender interface {
	Parse(resumeText, domainHint string) (request.Recommendation, error)
	Recommend(ctx context.Context, req request.Recommendation) (result.Recommendation, error)
}

// Query is one labelled resume. Relevant maps job id to graded relevance.
type Query struct {
	ID         string             `json:"id"`
	ResumeText string             `json:"resume_text"`
	DomainHint string             `json:"domain_hint,omitempty"`
	Relevant   map[string]float64 `json:"relevant"`
}

// QueryResult is the outcome of one query.
type QueryResult struct {
	ID       string            `json:"id"`
	Scores   evaluation.Scores `json:"scores"`
	Outcome  result.Outcome    `json:"outcome,omitempty"`
	Degraded bool              `json:"degraded,omitempty"`
	Ranked   []string          `json:"ranked"`
	Error    string            `json:"error,omitempty"`
}

// Report aggregates an evaluation run. Mean covers successful queries only.
type Report struct {
	RunID    string            `json:"run_id"`
	K        int               `json:"k"`
	Queries  int               `json:"queries"`
	Failed   int               `json:"failed"`
	Degraded int               `json:"degraded"`
	Mean     evaluation.Scores `json:"mean"`
	Results  []QueryResult     `json:"results"`
	Duration time.Duration     `json:"duration"`
}

// Service runs evaluations.
type Service struct {
	rec    Recommender
	logger *zap.Logger
}

// New creates an evaluation service.
func New(rec Recommender, logger *zap.Logger) *Service {
	return &Service{rec: rec, logger: logger}
}

// ReadQueries decodes JSON Lines queries. Queries without an id get their
// line number.
func ReadQueries(r io.Reader) ([]Query, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)

	var out []Query
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var q Query
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("line-%d", line)
		}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	return out, nil
}

// Run evaluates every query at cutoff k. A failing query is recorded and the
// run continues; only context cancellation aborts it.
func (s *Service) Run(ctx context.Context, queries []Query, k int) (Report, error) {
	if k <= 0 {
		k = result.MaxResults
	}
	start := time.Now()
	report := Report{RunID: uuid.NewString(), K: k, Queries: len(queries)}
	log := s.logger.With(zap.String("run_id", report.RunID))
	ctx = logger.ContextWithLogger(ctx, log)

	var scored []evaluation.Scores
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		qr := s.one(logger.With(ctx, zap.String("query", q.ID)), q, k)
		if qr.Error != "" {
			report.Failed++
			log.Warn("Evaluation query failed", zap.String("query", q.ID), zap.String("error", qr.Error))
		} else {
			scored = append(scored, qr.Scores)
		}
		if qr.Degraded {
			report.Degraded++
		}
		report.Results = append(report.Results, qr)
	}

	report.Mean = evaluation.Mean(scored)
	report.Mean.K = k
	report.Duration = time.Since(start)
	log.Info("Evaluation finished",
		zap.Int("queries", report.Queries),
		zap.Int("failed", report.Failed),
		zap.Float64("ndcg", report.Mean.NDCG),
		zap.Float64("precision", report.Mean.Precision),
		zap.Float64("recall", report.Mean.Recall),
	)
	return report, nil
}

func (s *Service) one(ctx context.Context, q Query, k int) QueryResult {
	qr := QueryResult{ID: q.ID, Ranked: []string{}}
	req, err := s.rec.Parse(q.ResumeText, q.DomainHint)
	if err != nil {
		qr.Error = err.Error()
		return qr
	}
	rec, err := s.rec.Recommend(ctx, req)
	if err != nil {
		qr.Error = err.Error()
		return qr
	}
	for _, r := range rec.Results {
		qr.Ranked = append(qr.Ranked, r.JobID)
	}
	qr.Outcome = rec.Outcome
	qr.Degraded = rec.Degraded
	qr.Scores = evaluation.Evaluate(qr.Ranked, q.Relevant, k)
	return qr
}
