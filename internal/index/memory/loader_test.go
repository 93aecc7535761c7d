package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

type postingsFunc func(ctx context.Context, version string) ([]job.Posting, error)

func (f postingsFunc) LoadPostings(ctx context.Context, version string) ([]job.Posting, error) {
	return f(ctx, version)
}

func TestLoader_BuildsSnapshot(t *testing.T) {
	a, _ := job.New("a", "", "", "golang backend", label.Technology, []float32{1, 0})
	b, _ := job.New("b", "", "", "bank teller", label.Finance, []float32{0, 1})
	l := NewLoader(postingsFunc(func(_ context.Context, version string) ([]job.Posting, error) {
		if version != "v1" {
			t.Errorf("version = %q", version)
		}
		return []job.Posting{a, b}, nil
	}))

	idx, err := l.Load(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Version != "v1" || idx.Documents != 2 {
		t.Errorf("indexes = %+v", idx)
	}
	hits, err := idx.Lexical.SearchLexical(context.Background(), "golang", 5)
	if err != nil || len(hits) != 1 || hits[0].JobID != "a" {
		t.Errorf("lexical hits = %+v, %v", hits, err)
	}
}

func TestLoader_DimensionSkew(t *testing.T) {
	a, _ := job.New("a", "", "", "x", label.Technology, []float32{1, 0})
	b, _ := job.New("b", "", "", "y", label.Finance, []float32{0, 1, 0})
	l := NewLoader(postingsFunc(func(context.Context, string) ([]job.Posting, error) {
		return []job.Posting{a, b}, nil
	}))

	_, err := l.Load(context.Background(), "v1")
	if !errors.Is(err, domain.ErrEmbeddingDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestLoader_ReadError(t *testing.T) {
	l := NewLoader(postingsFunc(func(context.Context, string) ([]job.Posting, error) {
		return nil, errors.New("scan failed")
	}))
	if _, err := l.Load(context.Background(), "v1"); err == nil {
		t.Fatal("expected error")
	}
}
