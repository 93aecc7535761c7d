package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
	"github.com/kailas-cloud/jobmatch/internal/domain/text"
	"github.com/kailas-cloud/jobmatch/internal/logger"
	"github.com/kailas-cloud/jobmatch/internal/metrics"
)

// Params tunes hybrid retrieval.
type Params struct {
	LexicalK             int
	VectorK              int
	PoolSize             int
	Alpha                float64
	RetrievalTimeout     time.Duration
	LexicalQueryMaxChars int
}

// DefaultParams returns K_lex = K_vec = 50, N = 30, alpha = 0.5 and a 500ms
// per-channel deadline.
func DefaultParams() Params {
	return Params{
		LexicalK:             50,
		VectorK:              50,
		PoolSize:             30,
		Alpha:                0.5,
		RetrievalTimeout:     500 * time.Millisecond,
		LexicalQueryMaxChars: 500,
	}
}

// MinPoolSize keeps enough candidates to fill a full result list.
const MinPoolSize = 10

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.LexicalK < 1 || p.VectorK < 1:
		return fmt.Errorf("k_lex and k_vec must be positive, got %d/%d", p.LexicalK, p.VectorK)
	case p.PoolSize < MinPoolSize:
		return fmt.Errorf("pool_size must be at least %d, got %d", MinPoolSize, p.PoolSize)
	case p.Alpha < 0 || p.Alpha > 1:
		return fmt.Errorf("alpha must be in [0,1], got %v", p.Alpha)
	case p.RetrievalTimeout <= 0:
		return fmt.Errorf("retrieval timeout must be positive")
	}
	return nil
}

// Query is the resume as seen by retrieval.
type Query struct {
	Text      string
	Embedding []float32
}

// Outcome is the fused candidate pool of one request. An empty Candidates
// slice means neither channel matched anything.
type Outcome struct {
	Candidates    []candidate.Candidate
	Dropped       []candidate.Channel
	CorpusVersion string
}

// Service is the hybrid search engine.
type Service struct {
	source IndexSource
	params Params
}

// New creates a hybrid search engine reading from source.
func New(source IndexSource, params Params) *Service {
	return &Service{source: source, params: params}
}

type channelResult struct {
	hits    []candidate.Hit
	err     error
	timeout bool
}

// Search queries both indexes concurrently and fuses their scores.
// A channel that exceeds the retrieval deadline is dropped; both dropped
// fails with ErrRetrievalTimeout. Any other index error is fatal.
func (s *Service) Search(ctx context.Context, q Query) (Outcome, error) {
	idx := s.source.Acquire()
	if idx.Lexical == nil || idx.Vector == nil {
		return Outcome{}, fmt.Errorf("%w: no corpus loaded", domain.ErrIndexUnavailable)
	}

	chCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lexQuery := text.Truncate(q.Text, s.params.LexicalQueryMaxChars)

	var (
		wg       sync.WaitGroup
		lex, vec channelResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lex = s.retrieve(chCtx, candidate.Lexical, func(ctx context.Context) ([]candidate.Hit, error) {
			return idx.Lexical.SearchLexical(ctx, lexQuery, s.params.LexicalK)
		})
		if lex.err != nil && !lex.timeout {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		vec = s.retrieve(chCtx, candidate.Vector, func(ctx context.Context) ([]candidate.Hit, error) {
			return idx.Vector.SearchVector(ctx, q.Embedding, s.params.VectorK)
		})
		if vec.err != nil && !vec.timeout {
			cancel()
		}
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("hybrid search: %w", err)
	}
	for _, r := range []channelResult{vec, lex} {
		if r.err != nil && !r.timeout && !errors.Is(r.err, context.Canceled) {
			return Outcome{}, r.err
		}
	}
	if lex.timeout && vec.timeout {
		return Outcome{}, fmt.Errorf("%w: both channels exceeded %s",
			domain.ErrRetrievalTimeout, s.params.RetrievalTimeout)
	}

	out := Outcome{CorpusVersion: idx.Version}
	lexHits, vecHits := lex.hits, vec.hits
	if lex.timeout {
		out.Dropped = append(out.Dropped, candidate.Lexical)
		lexHits = nil
	} else if lexHits == nil {
		lexHits = []candidate.Hit{}
	}
	if vec.timeout {
		out.Dropped = append(out.Dropped, candidate.Vector)
		vecHits = nil
	} else if vecHits == nil {
		vecHits = []candidate.Hit{}
	}
	if len(out.Dropped) > 0 {
		logger.FromContext(ctx).Warn("Retrieval channel dropped",
			zap.Any("channels", out.Dropped),
			zap.Duration("timeout", s.params.RetrievalTimeout),
		)
	}

	out.Candidates = fuse(lexHits, vecHits, s.params.Alpha, s.params.PoolSize)
	metrics.CandidatePoolSize.Observe(float64(len(out.Candidates)))
	return out, nil
}

// retrieve runs one channel under its own deadline. The deadline is
// enforced here so an index that ignores ctx cannot stall the request.
func (s *Service) retrieve(
	ctx context.Context, ch candidate.Channel,
	fn func(context.Context) ([]candidate.Hit, error),
) channelResult {
	start := time.Now()
	defer func() {
		metrics.RetrievalChannelDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())
	}()

	tctx, cancel := context.WithTimeout(ctx, s.params.RetrievalTimeout)
	defer cancel()

	done := make(chan channelResult, 1)
	go func() {
		hits, err := fn(tctx)
		done <- channelResult{hits: hits, err: err}
	}()

	var r channelResult
	select {
	case r = <-done:
	case <-tctx.Done():
		r = channelResult{err: tctx.Err()}
	}
	if r.err == nil {
		return r
	}
	if ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		metrics.RetrievalTimeoutsTotal.WithLabelValues(string(ch)).Inc()
		return channelResult{
			err:     fmt.Errorf("%s channel: %w", ch, domain.ErrRetrievalTimeout),
			timeout: true,
		}
	}
	r.err = fmt.Errorf("%s channel: %w", ch, r.err)
	return r
}
