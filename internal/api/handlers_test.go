// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/collections"
	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/events"
	"github.com/curatarr/curatarr/internal/fallback"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/recommend"
	"github.com/curatarr/curatarr/internal/resolve"
	syncpkg "github.com/curatarr/curatarr/internal/sync"
)

// stubScoring is a canned scoring client for handler tests.
type stubScoring struct {
	candidates []models.ScoredCandidate
	healthErr  error
}

func (s *stubScoring) Recommendations(ctx context.Context, userID uuid.UUID, count int) ([]models.ScoredCandidate, error) {
	return s.candidates, nil
}
func (s *stubScoring) SyncUser(ctx context.Context, record *models.UserSyncRecord) error { return nil }
func (s *stubScoring) SyncContent(ctx context.Context, items []models.ContentMetadata) error {
	return nil
}
func (s *stubScoring) SendWatchEvent(ctx context.Context, event *models.WatchEvent) error {
	return nil
}
func (s *stubScoring) SendEvent(ctx context.Context, payload []byte) error { return nil }
func (s *stubScoring) TestConnection(ctx context.Context) error            { return s.healthErr }

type apiHarness struct {
	server *httptest.Server
	cat    *catalog.Memory
	stub   *stubScoring
	userID uuid.UUID
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	cat := catalog.NewMemory()
	userID := uuid.New()
	cat.AddUser(models.User{ID: userID, Name: "alice"})

	stub := &stubScoring{}
	emitter := events.NewEmitter(stub, nil)
	state := config.NewStateStore(t.TempDir() + "/state.json")

	syncMgr := syncpkg.NewManager(cat, stub, emitter, state, config.SyncConfig{HistoryLimit: 500})
	orch := recommend.NewOrchestrator(
		stub,
		fallback.NewEngine(cat),
		resolve.NewResolver(cat),
		collections.NewManager(cat),
		emitter,
		cat,
		config.EngineConfig{AutoCreateCollections: true, MaxCollections: 5, RecommendationCount: 50},
	)

	handler := NewHandler(syncMgr, orch, stub, events.NewWatcher(emitter))
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)

	return &apiHarness{server: server, cat: cat, stub: stub, userID: userID}
}

func decode(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Get(h.server.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decode(t, resp)
	if out.Status != "ok" {
		t.Errorf("unexpected status %q", out.Status)
	}
}

func TestTriggerSyncEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.cat.AddItem(models.MediaItem{ID: uuid.New(), Name: "Item", MediaType: models.MediaTypeMovie})

	resp, err := http.Post(h.server.URL+"/api/v1/sync", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decode(t, resp)
	data, ok := out.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape %T", out.Data)
	}
	if data["message"] == "" {
		t.Error("expected sync message")
	}
}

func TestSyncUsersEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Post(h.server.URL+"/api/v1/sync/users", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestTestConnectionEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Get(h.server.URL + "/api/v1/test")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Unreachable scoring service reports upstream failure.
	h.stub.healthErr = errors.New("connection refused")
	resp, err = http.Get(h.server.URL + "/api/v1/test")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	out := decode(t, resp)
	if out.Status != "error" || out.Error == "" {
		t.Errorf("expected error body, got %+v", out)
	}
}

func TestGenerateForUserEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	// Three resolvable trending candidates become one collection.
	for i := 0; i < 3; i++ {
		item := models.MediaItem{ID: uuid.New(), Name: uuid.NewString(), MediaType: models.MediaTypeMovie}
		h.cat.AddItem(item)
		h.stub.candidates = append(h.stub.candidates, models.ScoredCandidate{
			ItemID: item.ID, ItemName: item.Name, MediaType: item.MediaType,
			Score: 0.9, Reason: "trending now",
		})
	}

	resp, err := http.Post(h.server.URL+"/api/v1/recommendations/generate/"+h.userID.String(), "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decode(t, resp)
	data, ok := out.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape %T", out.Data)
	}
	if got, _ := data["candidateCount"].(float64); got != 3 {
		t.Errorf("expected 3 candidates, got %v", data["candidateCount"])
	}
}

func TestGenerateForUserInvalidID(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Post(h.server.URL+"/api/v1/recommendations/generate/not-a-uuid", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGenerateForUnknownUser(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Post(h.server.URL+"/api/v1/recommendations/generate/"+uuid.NewString(), "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHomeScreenEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	for i := 0; i < 3; i++ {
		item := models.MediaItem{ID: uuid.New(), Name: uuid.NewString(), MediaType: models.MediaTypeMovie}
		h.cat.AddItem(item)
		h.stub.candidates = append(h.stub.candidates, models.ScoredCandidate{
			ItemID: item.ID, ItemName: item.Name, MediaType: item.MediaType,
			Score: 0.9, Reason: "popular this week",
		})
	}

	resp, err := http.Get(h.server.URL + "/api/v1/recommendations/home/" + h.userID.String())
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decode(t, resp)
	rows, ok := out.Data.([]interface{})
	if !ok {
		t.Fatalf("unexpected data shape %T", out.Data)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestHomeScreenLimit(t *testing.T) {
	h := newAPIHarness(t)

	for i := 0; i < 4; i++ {
		item := models.MediaItem{ID: uuid.New(), Name: uuid.NewString(), MediaType: models.MediaTypeMovie}
		h.cat.AddItem(item)
		h.stub.candidates = append(h.stub.candidates, models.ScoredCandidate{
			ItemID: item.ID, ItemName: item.Name, MediaType: item.MediaType,
			Score: 0.9, Reason: "popular this week",
		})
	}

	resp, err := http.Get(h.server.URL + "/api/v1/recommendations/home/" + h.userID.String() + "?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decode(t, resp)
	rows, ok := out.Data.([]interface{})
	if !ok {
		t.Fatalf("unexpected data shape %T", out.Data)
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected row shape %T", rows[0])
	}
	items, _ := row["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("expected 2 items after limit, got %d", len(items))
	}
}

func TestWatchEventEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	body, _ := json.Marshal(map[string]interface{}{
		"userId":    h.userID.String(),
		"itemId":    uuid.NewString(),
		"eventType": models.WatchEventPlayStart,
	})
	resp, err := http.Post(h.server.URL+"/api/v1/events/watch", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
}

func TestWatchEventMissingFields(t *testing.T) {
	h := newAPIHarness(t)

	body, _ := json.Marshal(map[string]interface{}{"eventType": models.WatchEventPlayStart})
	resp, err := http.Post(h.server.URL+"/api/v1/events/watch", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Get(h.server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
