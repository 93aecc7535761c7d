package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/logger"
)

// ErrorCode is the machine-readable error identifier in error responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeUnknownLabel           ErrorCode = "unknown_label"
	CodeResumeProcessingFailed ErrorCode = "resume_processing_failed"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeIndexUnavailable       ErrorCode = "index_unavailable"
	CodeDimensionMismatch      ErrorCode = "embedding_dimension_mismatch"
	CodeRetrievalTimeout       ErrorCode = "retrieval_timeout"
	CodeCorpusNotLoaded        ErrorCode = "corpus_not_loaded"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorRule maps a sentinel to a response. Rules are checked in order, so
// a provider failure wrapped in ErrResumeProcessingFailed answers 502.
type errorRule struct {
	sentinel error
	status   int
	code     ErrorCode
	// expose returns the full error text; only for client input errors.
	expose bool
}

var errorRules = []errorRule{
	{domain.ErrUnknownLabel, http.StatusBadRequest, CodeUnknownLabel, true},
	{domain.ErrInvalidResume, http.StatusUnprocessableEntity, CodeResumeProcessingFailed, true},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError, false},
	{domain.ErrResumeProcessingFailed, http.StatusUnprocessableEntity, CodeResumeProcessingFailed, false},
	{domain.ErrEmbeddingDimensionMismatch, http.StatusInternalServerError, CodeDimensionMismatch, false},
	{domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable, false},
	{domain.ErrRetrievalTimeout, http.StatusGatewayTimeout, CodeRetrievalTimeout, false},
}

// writeDomainError answers err through the rule table. Unmatched errors are
// logged and become an opaque 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, rule := range errorRules {
		if !errors.Is(err, rule.sentinel) {
			continue
		}
		msg := rule.sentinel.Error()
		if rule.expose {
			msg = err.Error()
		}
		if rule.status >= http.StatusInternalServerError {
			log.Error("request failed", zap.Error(err))
		} else {
			log.Warn("request rejected", zap.Error(err))
		}
		writeError(w, rule.status, rule.code, msg)
		return
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
