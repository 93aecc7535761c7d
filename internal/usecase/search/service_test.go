package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
)

type fakeLexical struct {
	hits  []candidate.Hit
	err   error
	delay time.Duration
	query string
}

func (f *fakeLexical) SearchLexical(ctx context.Context, query string, k int) ([]candidate.Hit, error) {
	f.query = query
	if err := wait(ctx, f.delay); err != nil {
		return nil, err
	}
	return limit(f.hits, k), f.err
}

type fakeVector struct {
	hits    []candidate.Hit
	err     error
	delay   time.Duration
	ignores bool // block without watching ctx
}

func (f *fakeVector) SearchVector(ctx context.Context, _ []float32, k int) ([]candidate.Hit, error) {
	if f.ignores {
		time.Sleep(f.delay)
	} else if err := wait(ctx, f.delay); err != nil {
		return nil, err
	}
	return limit(f.hits, k), f.err
}

func wait(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func limit(hits []candidate.Hit, k int) []candidate.Hit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}

type staticSource struct{ idx Indexes }

func (s staticSource) Acquire() Indexes { return s.idx }

func newService(lex LexicalIndex, vec VectorIndex, p Params) *Service {
	return New(staticSource{idx: Indexes{Version: "v1", Lexical: lex, Vector: vec}}, p)
}

func testParams() Params {
	p := DefaultParams()
	p.RetrievalTimeout = 50 * time.Millisecond
	return p
}

func TestService_Search_FusesBothChannels(t *testing.T) {
	lex := &fakeLexical{hits: []candidate.Hit{hit("a", 5), hit("b", 1)}}
	vec := &fakeVector{hits: []candidate.Hit{hit("b", 0.9), hit("c", 0.3)}}
	svc := newService(lex, vec, testParams())

	out, err := svc.Search(context.Background(), Query{Text: "go engineer", Embedding: []float32{1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Candidates) != 3 {
		t.Fatalf("candidates = %d, want 3", len(out.Candidates))
	}
	if out.CorpusVersion != "v1" {
		t.Errorf("CorpusVersion = %q", out.CorpusVersion)
	}
	if len(out.Dropped) != 0 {
		t.Errorf("Dropped = %v", out.Dropped)
	}
}

func TestService_Search_TruncatesLexicalQuery(t *testing.T) {
	lex := &fakeLexical{}
	p := testParams()
	p.LexicalQueryMaxChars = 5
	svc := newService(lex, &fakeVector{}, p)

	if _, err := svc.Search(context.Background(), Query{Text: "abcdefghij"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lex.query != "abcde" {
		t.Errorf("lexical query = %q, want truncated", lex.query)
	}
}

func TestService_Search_EmptyCorpus(t *testing.T) {
	svc := newService(&fakeLexical{}, &fakeVector{}, testParams())

	out, err := svc.Search(context.Background(), Query{Text: "anything", Embedding: []float32{1}})
	if err != nil {
		t.Fatalf("empty corpus must not fail: %v", err)
	}
	if len(out.Candidates) != 0 {
		t.Errorf("candidates = %d, want 0", len(out.Candidates))
	}
}

func TestService_Search_OneChannelTimesOut(t *testing.T) {
	tests := []struct {
		name    string
		lex     *fakeLexical
		vec     *fakeVector
		dropped candidate.Channel
	}{
		{
			name:    "lexical slow",
			lex:     &fakeLexical{hits: []candidate.Hit{hit("a", 1)}, delay: time.Second},
			vec:     &fakeVector{hits: []candidate.Hit{hit("b", 0.9), hit("c", 0.1)}},
			dropped: candidate.Lexical,
		},
		{
			name:    "vector ignores deadline",
			lex:     &fakeLexical{hits: []candidate.Hit{hit("b", 3), hit("c", 1)}},
			vec:     &fakeVector{hits: []candidate.Hit{hit("a", 1)}, delay: 200 * time.Millisecond, ignores: true},
			dropped: candidate.Vector,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(tt.lex, tt.vec, testParams())

			out, err := svc.Search(context.Background(), Query{Text: "q", Embedding: []float32{1}})
			if err != nil {
				t.Fatalf("single timeout must degrade, got %v", err)
			}
			if len(out.Dropped) != 1 || out.Dropped[0] != tt.dropped {
				t.Fatalf("Dropped = %v, want [%s]", out.Dropped, tt.dropped)
			}
			if len(out.Candidates) != 2 || out.Candidates[0].JobID != "b" {
				t.Fatalf("candidates = %+v", out.Candidates)
			}
			if !approx(out.Candidates[0].FusedScore, 1) {
				t.Errorf("surviving channel fused = %v, want 1", out.Candidates[0].FusedScore)
			}
		})
	}
}

func TestService_Search_BothTimeOut(t *testing.T) {
	svc := newService(
		&fakeLexical{delay: time.Second},
		&fakeVector{delay: time.Second},
		testParams(),
	)

	_, err := svc.Search(context.Background(), Query{Text: "q", Embedding: []float32{1}})
	if !errors.Is(err, domain.ErrRetrievalTimeout) {
		t.Fatalf("expected ErrRetrievalTimeout, got %v", err)
	}
}

func TestService_Search_IndexErrorIsFatal(t *testing.T) {
	tests := []struct {
		name string
		lex  *fakeLexical
		vec  *fakeVector
		want error
	}{
		{
			name: "lexical unavailable",
			lex:  &fakeLexical{err: domain.ErrIndexUnavailable},
			vec:  &fakeVector{hits: []candidate.Hit{hit("a", 1)}},
			want: domain.ErrIndexUnavailable,
		},
		{
			name: "dimension mismatch",
			lex:  &fakeLexical{hits: []candidate.Hit{hit("a", 1)}},
			vec:  &fakeVector{err: domain.NewDimensionMismatch(3, 2)},
			want: domain.ErrEmbeddingDimensionMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(tt.lex, tt.vec, testParams())
			_, err := svc.Search(context.Background(), Query{Text: "q", Embedding: []float32{1, 2}})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_Search_CallerCancellation(t *testing.T) {
	svc := newService(
		&fakeLexical{delay: 30 * time.Millisecond},
		&fakeVector{delay: 30 * time.Millisecond},
		testParams(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := svc.Search(ctx, Query{Text: "q", Embedding: []float32{1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(out.Candidates) != 0 {
		t.Error("cancelled request must not return partial candidates")
	}
}

func TestService_Search_NoCorpus(t *testing.T) {
	svc := New(staticSource{}, testParams())
	_, err := svc.Search(context.Background(), Query{Text: "q"})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestService_Search_Deterministic(t *testing.T) {
	lex := &fakeLexical{hits: []candidate.Hit{hit("d", 2), hit("c", 2), hit("b", 1)}}
	vec := &fakeVector{hits: []candidate.Hit{hit("a", 0.5), hit("b", 0.5)}}
	svc := newService(lex, vec, testParams())

	first, err := svc.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := svc.Search(context.Background(), Query{Text: "q"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for j := range first.Candidates {
			if again.Candidates[j].JobID != first.Candidates[j].JobID {
				t.Fatalf("run %d differs at %d", i, j)
			}
		}
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		ok     bool
	}{
		{"defaults", func(*Params) {}, true},
		{"alpha high", func(p *Params) { p.Alpha = 1.1 }, false},
		{"pool too small", func(p *Params) { p.PoolSize = 9 }, false},
		{"zero k", func(p *Params) { p.LexicalK = 0 }, false},
		{"no timeout", func(p *Params) { p.RetrievalTimeout = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, ok want %v", err, tt.ok)
			}
		})
	}
}
