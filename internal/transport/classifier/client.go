// Package classifier calls a remote domain classification model over HTTP.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
	"github.com/kailas-cloud/jobmatch/internal/metrics"
)

const (
	metricsName = "http"
	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// Config holds the remote classifier settings.
type Config struct {
	BaseURL string
	APIKey  string // optional bearer token
	Timeout time.Duration
	Logger  *zap.Logger
}

var (
	_ domain.Classifier    = (*Client)(nil)
	_ domain.HealthChecker = (*Client)(nil)
)

// Client implements domain.Classifier against POST {base_url}/classify.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	logger *zap.Logger
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

// New creates a remote classifier client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/classify",
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
		logger: cfg.Logger,
	}
}

// Classify returns the model's domain distribution for text.
// Every failure wraps domain.ErrClassifierUnavailable.
func (c *Client) Classify(ctx context.Context, text string) (label.Distribution, error) {
	dist, err := c.classify(ctx, text)
	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues(metricsName, "error").Inc()
		return label.Distribution{}, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}
	metrics.ClassifierRequestsTotal.WithLabelValues(metricsName, "success").Inc()
	return dist, nil
}

func (c *Client) classify(ctx context.Context, text string) (label.Distribution, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return label.Distribution{}, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return label.Distribution{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return label.Distribution{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return label.Distribution{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return label.Distribution{}, fmt.Errorf("decode: %w", err)
	}
	dist, err := label.ParseDistribution(out.Probabilities)
	if err != nil {
		return label.Distribution{}, fmt.Errorf("response: %w", err)
	}

	primary, p := dist.Primary()
	c.logger.Debug("Classifier response",
		zap.Duration("duration", time.Since(start)),
		zap.Stringer("primary", primary),
		zap.Float64("probability", p),
	)
	return dist, nil
}

// HealthCheck classifies a fixed sample text.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.classify(ctx, "software engineer"); err != nil {
		return fmt.Errorf("classifier health: %w", err)
	}
	return nil
}
