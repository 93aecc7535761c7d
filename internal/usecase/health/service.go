package health

import (
	"context"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a dependency failure the pipeline can serve through.
	Degraded Status = "degraded"
	// Unhealthy indicates recommendations cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status        Status
	Checks        map[string]CheckResult
	CorpusVersion string
	Documents     int
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	corpus     CorpusSource
	embedding  Checker
	classifier Checker
}

// New creates a Service. embedding and classifier can be nil.
func New(db DBPinger, corpus CorpusSource, embedding, classifier Checker) *Service {
	return &Service{db: db, corpus: corpus, embedding: embedding, classifier: classifier}
}

// Check runs health checks against all components. A corpus that has not
// loaded makes the service unhealthy; any other failure only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	record := func(name string, err error) {
		if err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			return
		}
		checks[name] = CheckOK
	}

	record("database", s.db.Ping(ctx))
	if s.embedding != nil {
		record("embedding", s.embedding.HealthCheck(ctx))
	}
	if s.classifier != nil {
		record("classifier", s.classifier.HealthCheck(ctx))
	}

	live := s.corpus.Acquire()
	if live.Lexical == nil || live.Vector == nil {
		checks["corpus"] = CheckError
		status = Unhealthy
	} else {
		checks["corpus"] = CheckOK
	}

	return Report{
		Status:        status,
		Checks:        checks,
		CorpusVersion: live.Version,
		Documents:     live.Documents,
	}
}
