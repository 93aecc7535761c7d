package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/candidate"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/request"
	"github.com/kailas-cloud/jobmatch/internal/domain/search/result"
	"github.com/kailas-cloud/jobmatch/internal/repository/corpus"
	healthuc "github.com/kailas-cloud/jobmatch/internal/usecase/health"
	"github.com/kailas-cloud/jobmatch/internal/usecase/recommend"
	"github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

type fakeRecommender struct {
	parser *recommend.Service
	rec    result.Recommendation
	err    error
	tokens int
	got    request.Recommendation
}

func (f *fakeRecommender) Parse(text, hint string) (request.Recommendation, error) {
	return f.parser.Parse(text, hint)
}

func (f *fakeRecommender) Recommend(ctx context.Context, req request.Recommendation) (result.Recommendation, error) {
	f.got = req
	if f.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(f.tokens)
	}
	return f.rec, f.err
}

type fakeCorpus struct{ idx search.Indexes }

func (f *fakeCorpus) Acquire() search.Indexes { return f.idx }

type fakeRefresher struct {
	swapped bool
	err     error
	onSwap  func()
}

func (f *fakeRefresher) Refresh(context.Context) (bool, error) {
	if f.swapped && f.onSwap != nil {
		f.onSwap()
	}
	return f.swapped, f.err
}

type fakeMeta struct {
	meta corpus.Meta
	err  error
}

func (f *fakeMeta) Current(context.Context) (corpus.Meta, error) { return f.meta, f.err }

type fakeHealth struct{ report healthuc.Report }

func (f *fakeHealth) Check(context.Context) healthuc.Report { return f.report }

type stubLexical struct{}

func (stubLexical) SearchLexical(context.Context, string, int) ([]candidate.Hit, error) {
	return nil, nil
}

type harness struct {
	rec     *fakeRecommender
	corpus  *fakeCorpus
	refresh *fakeRefresher
	meta    *fakeMeta
	health  *fakeHealth
	keys    []string
}

func newHarness() *harness {
	return &harness{
		rec:     &fakeRecommender{parser: recommend.New(nil, nil, nil, 0)},
		corpus:  &fakeCorpus{idx: search.Indexes{Version: "v1", Documents: 3, Lexical: stubLexical{}}},
		refresh: &fakeRefresher{},
		meta:    &fakeMeta{},
		health:  &fakeHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(h.rec, h.corpus, h.refresh, h.meta, h.health,
		Options{APIKeys: h.keys, Backend: "memory"}, zap.NewNop())

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestRecommend_OK(t *testing.T) {
	h := newHarness()
	h.rec.tokens = 42
	h.rec.rec = result.Recommendation{
		Outcome: result.OutcomeOK,
		Results: []result.Ranked{{
			JobID: "j1", Title: "Go Engineer", CompanyID: "acme",
			Rank: 1, Score: 1.2, FusedScore: 1, LexicalScore: 1, VectorScore: 0.9,
			DomainBonus: 0.2, DomainProbability: 0.8,
			Domain: label.Technology, Confidence: result.ConfidenceHigh,
		}},
		PrimaryDomain:     label.Technology,
		PrimaryConfidence: 0.8,
		TopDomains: []label.Scored{
			{Label: label.Technology, Prob: 0.8},
			{Label: label.Finance, Prob: 0.15},
		},
		CorpusVersion: "v1",
		Timings:       result.Timings{Total: 1500 * time.Microsecond},
	}

	rr := h.do(t, http.MethodPost, "/v1/recommendations",
		`{"resume_text":"  go engineer  ","domain_hint":"technology"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "42" {
		t.Errorf("X-Embedding-Tokens: got %q, want 42", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	resp := decode[RecommendationResponse](t, rr)
	if len(resp.Results) != 1 || resp.Results[0].JobID != "j1" || resp.Results[0].FinalRank != 1 {
		t.Fatalf("results: %+v", resp.Results)
	}
	if resp.Results[0].DomainLabel != "technology" || resp.Results[0].Confidence != "high" {
		t.Errorf("ranked job: %+v", resp.Results[0])
	}
	want := RankedJob{
		JobID: "j1", Title: "Go Engineer", CompanyID: "acme",
		FinalRank: 1, FinalScore: 1.2, FusedScore: 1, LexicalScore: 1, VectorScore: 0.9,
		DomainBonus: 0.2, DomainProbability: 0.8, DomainLabel: "technology", Confidence: "high",
	}
	if resp.Results[0] != want {
		t.Errorf("ranked job: got %+v, want %+v", resp.Results[0], want)
	}
	if len(resp.TopDomains) != 2 || resp.TopDomains[0] != (DomainScore{Domain: "technology", Probability: 0.8}) ||
		resp.TopDomains[1] != (DomainScore{Domain: "finance", Probability: 0.15}) {
		t.Errorf("top domains: %+v", resp.TopDomains)
	}
	if resp.PrimaryDomain != "technology" || resp.Timings.TotalMs != 1.5 {
		t.Errorf("response: %+v", resp)
	}
	if resp.DegradedReasons == nil {
		t.Error("degraded_reasons should encode as an empty list")
	}

	if h.rec.got.ResumeText() != "go engineer" {
		t.Errorf("resume text: got %q", h.rec.got.ResumeText())
	}
	if hint, ok := h.rec.got.DomainHint(); !ok || hint != label.Technology {
		t.Errorf("domain hint: got %v %v", hint, ok)
	}
}

func TestRecommend_Degraded(t *testing.T) {
	h := newHarness()
	rec := result.Recommendation{Outcome: result.OutcomeOK}
	rec.Degrade(result.ReasonClassifierUnavailable)
	h.rec.rec = rec

	rr := h.do(t, http.MethodPost, "/v1/recommendations", `{"resume_text":"nurse"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	body := rr.Body.String()
	resp := decode[RecommendationResponse](t, rr)
	if !resp.Degraded || len(resp.DegradedReasons) != 1 || resp.DegradedReasons[0] != "classifier_unavailable" {
		t.Errorf("degraded: %+v", resp)
	}
	if !strings.Contains(body, `"top_domains":[]`) {
		t.Errorf("top_domains should encode as an empty list: %s", body)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "" {
		t.Error("X-Embedding-Tokens set without embedding calls")
	}
}

func TestRecommend_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  ErrorCode
	}{
		{name: "malformed json", body: `{"resume_text":`, wantCode: http.StatusBadRequest, wantErr: CodeBadRequest},
		{name: "unknown field", body: `{"resume":"x"}`, wantCode: http.StatusBadRequest, wantErr: CodeBadRequest},
		{name: "trailing data", body: `{"resume_text":"x"} {}`, wantCode: http.StatusBadRequest, wantErr: CodeBadRequest},
		{name: "empty resume", body: `{"resume_text":"   "}`, wantCode: http.StatusUnprocessableEntity, wantErr: CodeResumeProcessingFailed},
		{name: "unknown hint", body: `{"resume_text":"x","domain_hint":"astrology"}`, wantCode: http.StatusBadRequest, wantErr: CodeUnknownLabel},
		{
			name: "provider error", body: `{"resume_text":"x"}`,
			err:      fmt.Errorf("%w: %w", domain.ErrResumeProcessingFailed, domain.ErrEmbeddingProviderError),
			wantCode: http.StatusBadGateway, wantErr: CodeEmbeddingProviderError,
		},
		{
			name: "dimension mismatch", body: `{"resume_text":"x"}`,
			err:      domain.NewDimensionMismatch(4, 8),
			wantCode: http.StatusInternalServerError, wantErr: CodeDimensionMismatch,
		},
		{
			name: "index unavailable", body: `{"resume_text":"x"}`,
			err:      domain.ErrIndexUnavailable,
			wantCode: http.StatusServiceUnavailable, wantErr: CodeIndexUnavailable,
		},
		{
			name: "retrieval timeout", body: `{"resume_text":"x"}`,
			err:      fmt.Errorf("search: %w", domain.ErrRetrievalTimeout),
			wantCode: http.StatusGatewayTimeout, wantErr: CodeRetrievalTimeout,
		},
		{
			name: "unexpected", body: `{"resume_text":"x"}`,
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError, wantErr: CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.rec.err = tt.err

			rr := h.do(t, http.MethodPost, "/v1/recommendations", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tt.wantErr {
				t.Errorf("code: got %s, want %s", resp.Code, tt.wantErr)
			}
			if tt.wantErr == CodeInternalError && strings.Contains(resp.Message, "boom") {
				t.Errorf("internal error leaked: %q", resp.Message)
			}
		})
	}
}

func TestRecommend_BodyTooLarge(t *testing.T) {
	h := newHarness()
	srv := NewServer(h.rec, h.corpus, h.refresh, h.meta, h.health,
		Options{MaxBodyBytes: 64}, zap.NewNop())

	body := `{"resume_text":"` + strings.Repeat("a", 128) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations", strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestListDomains(t *testing.T) {
	rr := newHarness().do(t, http.MethodGet, "/v1/domains", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decode[DomainsResponse](t, rr)
	if len(resp.Domains) != label.Count || resp.Domains[0] != "technology" {
		t.Errorf("domains: %v", resp.Domains)
	}
}

func TestGetCorpus(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("with metadata", func(t *testing.T) {
		h := newHarness()
		h.meta.meta = corpus.Meta{Version: "v1", Dimensions: 8, Documents: 3, Model: "m", CreatedAt: created}

		rr := h.do(t, http.MethodGet, "/v1/corpus", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d", rr.Code)
		}
		resp := decode[CorpusResponse](t, rr)
		if resp.Version != "v1" || resp.Documents != 3 || resp.Backend != "memory" {
			t.Errorf("corpus: %+v", resp)
		}
		if resp.Dimensions != 8 || resp.Model != "m" || resp.CreatedAt == nil || !resp.CreatedAt.Equal(created) {
			t.Errorf("metadata: %+v", resp)
		}
	})

	t.Run("stale metadata ignored", func(t *testing.T) {
		h := newHarness()
		h.meta.meta = corpus.Meta{Version: "v2", Dimensions: 8}

		resp := decode[CorpusResponse](t, h.do(t, http.MethodGet, "/v1/corpus", ""))
		if resp.Dimensions != 0 || resp.CreatedAt != nil {
			t.Errorf("stale metadata leaked: %+v", resp)
		}
	})

	t.Run("metadata error still answers", func(t *testing.T) {
		h := newHarness()
		h.meta.err = errors.New("redis down")

		rr := h.do(t, http.MethodGet, "/v1/corpus", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d", rr.Code)
		}
	})

	t.Run("not loaded", func(t *testing.T) {
		h := newHarness()
		h.corpus.idx = search.Indexes{}

		rr := h.do(t, http.MethodGet, "/v1/corpus", "")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("status: got %d, want 503", rr.Code)
		}
		if resp := decode[ErrorResponse](t, rr); resp.Code != CodeCorpusNotLoaded {
			t.Errorf("code: got %s", resp.Code)
		}
	})
}

func TestRefreshCorpus(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		h := newHarness()
		h.refresh.swapped = true
		h.refresh.onSwap = func() { h.corpus.idx.Version = "v2" }

		rr := h.do(t, http.MethodPost, "/v1/corpus/refresh", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d", rr.Code)
		}
		resp := decode[RefreshResponse](t, rr)
		if !resp.Swapped || resp.Version != "v2" {
			t.Errorf("refresh: %+v", resp)
		}
	})

	t.Run("failure", func(t *testing.T) {
		h := newHarness()
		h.refresh.err = errors.New("load failed")

		rr := h.do(t, http.MethodPost, "/v1/corpus/refresh", "")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("status: got %d, want 503", rr.Code)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status   healthuc.Status
		wantCode int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := newHarness()
			h.keys = []string{"secret"}
			h.health.report = healthuc.Report{
				Status:        tt.status,
				Checks:        map[string]healthuc.CheckResult{"corpus": healthuc.CheckOK},
				CorpusVersion: "v1",
			}

			rr := h.do(t, http.MethodGet, "/health", "")
			if rr.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantCode)
			}
			resp := decode[HealthResponse](t, rr)
			if resp.Status != string(tt.status) || resp.Checks["corpus"] != "ok" || resp.CorpusVersion != "v1" {
				t.Errorf("health: %+v", resp)
			}
		})
	}
}

func TestRoutes_AuthAndFallbacks(t *testing.T) {
	h := newHarness()
	h.keys = []string{"secret"}

	if rr := h.do(t, http.MethodGet, "/v1/domains", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: got %d, want 401", rr.Code)
	}
	if rr := h.do(t, http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Errorf("metrics: got %d, want 200", rr.Code)
	}

	h.keys = nil
	if rr := h.do(t, http.MethodGet, "/v1/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: got %d, want 404", rr.Code)
	}
	if rr := h.do(t, http.MethodDelete, "/v1/domains", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: got %d, want 405", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	handler := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != CodeInternalError {
		t.Errorf("code: got %s", resp.Code)
	}
}
