package health

import (
	"context"

	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an upstream dependency (embedding provider, classifier).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusSource reports the live corpus generation.
type CorpusSource interface {
	Acquire() search.Indexes
}
