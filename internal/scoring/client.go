// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package scoring implements the REST client for the external scoring
// service. The service receives user and content sync payloads, consumes
// watch events, and produces scored recommendation candidates.
package scoring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
)

// Client defines the scoring service operations. Both HTTPClient and
// BreakerClient implement this interface.
type Client interface {
	Recommendations(ctx context.Context, userID uuid.UUID, count int) ([]models.ScoredCandidate, error)
	SyncUser(ctx context.Context, record *models.UserSyncRecord) error
	SyncContent(ctx context.Context, items []models.ContentMetadata) error
	SendWatchEvent(ctx context.Context, event *models.WatchEvent) error
	SendEvent(ctx context.Context, payload []byte) error
	TestConnection(ctx context.Context) error
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient provides access to the scoring service REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a scoring service client.
//
// Parameters:
//   - baseURL: scoring service URL (e.g., http://localhost:5000)
//   - apiKey: API key sent in the X-API-Key header on every request
func NewHTTPClient(cfg *config.ScoringConfig) *HTTPClient {
	baseURL := strings.TrimSuffix(cfg.URL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Recommendations retrieves scored recommendation candidates for a user.
func (c *HTTPClient) Recommendations(ctx context.Context, userID uuid.UUID, count int) ([]models.ScoredCandidate, error) {
	endpoint := "/api/recommendations/" + userID.String() + "?count=" + strconv.Itoa(count)

	timer := time.Now()
	resp, err := c.doGet(ctx, endpoint)
	metrics.ScoringRequestDuration.WithLabelValues("recommendations").Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.ScoringRequestErrors.WithLabelValues("recommendations").Inc()
		return nil, fmt.Errorf("scoring recommendations request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.ScoringRequestErrors.WithLabelValues("recommendations").Inc()
		return nil, statusError("scoring recommendations", resp)
	}

	var candidates []models.ScoredCandidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("failed to decode scoring recommendations: %w", err)
	}

	return candidates, nil
}

// SyncUser pushes a user's profile, watch history, and ratings to the
// scoring service.
func (c *HTTPClient) SyncUser(ctx context.Context, record *models.UserSyncRecord) error {
	return c.postJSON(ctx, "/api/sync/user", "sync_user", record)
}

// SyncContent pushes a batch of content metadata to the scoring service.
func (c *HTTPClient) SyncContent(ctx context.Context, items []models.ContentMetadata) error {
	return c.postJSON(ctx, "/api/sync/content", "sync_content", items)
}

// SendWatchEvent forwards a playback event to the scoring service.
func (c *HTTPClient) SendWatchEvent(ctx context.Context, event *models.WatchEvent) error {
	return c.postJSON(ctx, "/api/events/watch", "watch_event", event)
}

// SendEvent forwards a pre-serialized event envelope to the scoring
// service. The payload is passed through unmodified so the scoring sink
// and the bus sink observe byte-identical envelopes.
func (c *HTTPClient) SendEvent(ctx context.Context, payload []byte) error {
	return c.postRaw(ctx, "/api/events", "event", payload)
}

// TestConnection verifies the scoring service is reachable and the API
// key is accepted.
func (c *HTTPClient) TestConnection(ctx context.Context) error {
	resp, err := c.doGet(ctx, "/api/health")
	if err != nil {
		metrics.ScoringRequestErrors.WithLabelValues("health").Inc()
		return fmt.Errorf("scoring health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.ScoringRequestErrors.WithLabelValues("health").Inc()
		return fmt.Errorf("scoring health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *HTTPClient) postJSON(ctx context.Context, endpoint, operation string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", operation, err)
	}
	return c.postRaw(ctx, endpoint, operation, data)
}

func (c *HTTPClient) postRaw(ctx context.Context, endpoint, operation string, data []byte) error {
	timer := time.Now()
	resp, err := c.doPost(ctx, endpoint, data)
	metrics.ScoringRequestDuration.WithLabelValues(operation).Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.ScoringRequestErrors.WithLabelValues(operation).Inc()
		return fmt.Errorf("scoring %s request failed: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The scoring service returns 200 or 202 on accepted payloads.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		metrics.ScoringRequestErrors.WithLabelValues(operation).Inc()
		return statusError("scoring "+operation, resp)
	}

	return nil
}

// doGet performs an HTTP GET request to the scoring service API.
func (c *HTTPClient) doGet(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// doPost performs an HTTP POST request with a JSON body.
func (c *HTTPClient) doPost(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

func statusError(operation string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body)", operation, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, string(body))
}
