package domain

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

var (
	// ErrResumeProcessingFailed signals that resume text could not be turned into a query.
	ErrResumeProcessingFailed = errors.New("resume processing failed")
	// ErrInvalidResume signals empty or oversized resume text.
	ErrInvalidResume = errors.New("invalid resume text")
	// ErrIndexUnavailable signals that a corpus index cannot be queried.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrEmbeddingDimensionMismatch signals corpus/provider version skew.
	ErrEmbeddingDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrClassifierUnavailable signals a domain classifier failure.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrRetrievalTimeout signals that a retrieval channel exceeded its deadline.
	ErrRetrievalTimeout = errors.New("retrieval timeout")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnknownLabel signals a domain label outside the closed set.
	ErrUnknownLabel = label.ErrUnknown
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPosting signals a job posting that cannot be ingested.
	ErrInvalidPosting = errors.New("invalid job posting")
)

// DimensionMismatchError wraps ErrEmbeddingDimensionMismatch with both sides of the skew.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: index expects %d, query has %d",
		ErrEmbeddingDimensionMismatch.Error(), e.Expected, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrEmbeddingDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(expected, got int) error {
	return &DimensionMismatchError{Expected: expected, Got: got}
}
