// Package chi serves the recommendation HTTP API on a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/request"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/result"
	"github.com/kailas-cloud/jobmatch/internal/logger"
	"github.com/kailas-cloud/jobmatch/internal/metrics"
	"github.com/kailas-cloud/jobmatch/internal/repository/corpus"
	healthuc "github.com/kailas-cloud/jobmatch/internal/usecase/health"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// Recommender is the recommendation orchestrator.
type Recommender interface {
	Parse(resumeText, domainHint string) (request.Recommendation, error)
	Recommend(ctx context.Context, req request.Recommendation) (result.Recommendation, error)
}

// CorpusSource hands out the live corpus generation.
type CorpusSource interface {
	Acquire() search.Indexes
}

// CorpusRefresher reloads the corpus when a new version was published.
type CorpusRefresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// CorpusMeta reads metadata of the published corpus version.
type CorpusMeta interface {
	Current(ctx context.Context) (corpus.Meta, error)
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options carry the non-service settings of the server.
type Options struct {
	APIKeys []string
	Backend string
	// MaxBodyBytes caps request bodies; 0 derives it from the resume limit.
	MaxBodyBytes int64
}

// Server implements the HTTP API.
type Server struct {
	recommender Recommender
	corpus      CorpusSource
	refresher   CorpusRefresher
	meta        CorpusMeta // optional
	health      HealthChecker
	opts        Options
	logger      *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	recommender Recommender,
	corpus CorpusSource,
	refresher CorpusRefresher,
	meta CorpusMeta,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.MaxBodyBytes <= 0 {
		// JSON escaping can double the resume text
		opts.MaxBodyBytes = 2*request.DefaultMaxResumeBytes + 4096
	}
	return &Server{
		recommender: recommender,
		corpus:      corpus,
		refresher:   refresher,
		meta:        meta,
		health:      health,
		opts:        opts,
		logger:      logger,
	}
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommendations", s.Recommend)
		r.Get("/domains", s.ListDomains)
		r.Get("/corpus", s.GetCorpus)
		r.Post("/corpus/refresh", s.RefreshCorpus)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Recommend handles POST /v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := decodeJSON(w, r, s.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	parsed, err := s.recommender.Parse(req.ResumeText, req.DomainHint)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	rec, err := s.recommender.Recommend(r.Context(), parsed)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if rec.Degraded {
		logger.FromContext(r.Context()).Warn("Degraded recommendation",
			zap.Any("reasons", rec.DegradedReasons))
	}
	setEmbeddingHeaders(w, domain.UsageFromContext(r.Context()))
	writeJSON(w, http.StatusOK, recommendationToDTO(&rec))
}

// ListDomains handles GET /v1/domains.
func (s *Server) ListDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domainsToDTO())
}

// GetCorpus handles GET /v1/corpus.
func (s *Server) GetCorpus(w http.ResponseWriter, r *http.Request) {
	live := s.corpus.Acquire()
	if live.Lexical == nil {
		writeError(w, http.StatusServiceUnavailable, CodeCorpusNotLoaded, "corpus not loaded")
		return
	}
	resp := CorpusResponse{Version: live.Version, Documents: live.Documents, Backend: s.opts.Backend}

	if s.meta != nil && live.Version != "" {
		m, err := s.meta.Current(r.Context())
		switch {
		case err == nil && m.Version == live.Version:
			resp.Dimensions = m.Dimensions
			resp.Model = m.Model
			if !m.CreatedAt.IsZero() {
				created := m.CreatedAt.UTC()
				resp.CreatedAt = &created
			}
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			logger.FromContext(r.Context()).Warn("Corpus metadata lookup failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// RefreshCorpus handles POST /v1/corpus/refresh.
func (s *Server) RefreshCorpus(w http.ResponseWriter, r *http.Request) {
	swapped, err := s.refresher.Refresh(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Corpus refresh failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, CodeIndexUnavailable, "corpus refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Swapped: swapped, Version: s.corpus.Acquire().Version})
}

// HealthCheck handles GET /health. A degraded service still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:        string(report.Status),
		Checks:        checks,
		CorpusVersion: report.CorpusVersion,
		Documents:     report.Documents,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)
		}
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Calls > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
