package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	piierrors "github.com/pii-scanner/pii-scanner/internal/common/errors"
	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
)

// requestBody is the wire shape POSTed to the NER service (spec.md §6).
type requestBody struct {
	Texts  []string `json:"texts"`
	Column string   `json:"column"`
}

// responseBody is the 200 response shape.
type responseBody struct {
	Entities []struct {
		Text  string  `json:"text"`
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"entities"`
}

// HTTPClient is the canonical NerClient implementation: a plain HTTP
// POST wrapped in timeout, retry and circuit-breaker middleware.
type HTTPClient struct {
	url  string
	http *http.Client
	call callFunc
	log  logger.Logger
}

// Config configures the HTTP NER client's resilience behavior.
type Config struct {
	URL                 string
	TimeoutSeconds      int
	RetryAttempts       int
	FailureThreshold    int
	ResetTimeoutSeconds int
	// MaxRequestsPerSecond caps calls into the NER backend; 0 disables
	// the limiter and lets the column worker pool's own concurrency
	// cap be the only throttle.
	MaxRequestsPerSecond int
}

// NewHTTPClient builds an HTTPClient with the middleware chain
// rateLimit(timeout(retry(breaker(transport)))); breaker innermost so a timed-out
// or exhausted-retry call still counts toward the breaker's consecutive
// failure count.
func NewHTTPClient(cfg Config) *HTTPClient {
	log := logger.NewLogger("ner.http")
	c := &HTTPClient{
		url:  cfg.URL,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:  log,
	}

	cb := newBreaker("ner-http", cfg.FailureThreshold, time.Duration(cfg.ResetTimeoutSeconds)*time.Second, log)
	chain := withBreaker(cb, c.transport)
	chain = withRetry(cfg.RetryAttempts, 500*time.Millisecond, log, chain)
	chain = withTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second, chain)
	chain = withRateLimit(cfg.MaxRequestsPerSecond, chain)
	c.call = chain
	return c
}

// Detect implements interfaces.NerClient.
func (c *HTTPClient) Detect(ctx context.Context, column string, texts []string) ([]interfaces.NerEntity, error) {
	entities, err := c.call(ctx, column, texts)
	if err != nil {
		return nil, piierrors.NerUnavailable(fmt.Sprintf("ner call for column %s failed", column), err)
	}
	out := make([]interfaces.NerEntity, 0, len(entities))
	for _, e := range entities {
		out = append(out, interfaces.NerEntity{Text: e.Text, Label: e.Label, Score: e.Score})
	}
	return out, nil
}

// transport performs the actual HTTP POST; it is the innermost link of
// the middleware chain the circuit breaker wraps.
func (c *HTTPClient) transport(ctx context.Context, column string, texts []string) ([]Entity, error) {
	body, err := json.Marshal(requestBody{Texts: texts, Column: column})
	if err != nil {
		return nil, fmt.Errorf("encoding ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ner service returned status %d", resp.StatusCode)
	}

	var parsed responseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding ner response: %w", err)
	}

	out := make([]Entity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		out = append(out, Entity{Text: e.Text, Label: e.Label, Score: e.Score})
	}
	return out, nil
}
