// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package scoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/models"
)

func newTestClient(url string) *HTTPClient {
	return NewHTTPClient(&config.ScoringConfig{
		URL:     url,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestRecommendations(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/recommendations/"+userID.String() {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("count"); got != "50" {
			t.Errorf("expected count=50, got %q", got)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("expected API key header, got %q", got)
		}

		candidates := []models.ScoredCandidate{
			{ItemID: itemID, ItemName: "Inception", MediaType: models.MediaTypeMovie, Score: 0.92, Reason: "similar to your favorites"},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(candidates)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	got, err := client.Recommendations(context.Background(), userID, 50)
	if err != nil {
		t.Fatalf("Recommendations failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].ItemID != itemID || got[0].Score != 0.92 {
		t.Errorf("unexpected candidate: %+v", got[0])
	}
}

func TestRecommendationsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Recommendations(context.Background(), uuid.New(), 10); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestSyncUserPostsPayload(t *testing.T) {
	userID := uuid.New()
	var received models.UserSyncRecord

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/sync/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	record := &models.UserSyncRecord{
		UserID:   userID,
		UserName: "alice",
		SyncedAt: time.Now().UTC(),
	}

	client := newTestClient(server.URL)
	if err := client.SyncUser(context.Background(), record); err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}
	if received.UserID != userID || received.UserName != "alice" {
		t.Errorf("unexpected payload: %+v", received)
	}
}

func TestSyncContentRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.SyncContent(context.Background(), []models.ContentMetadata{{Name: "Dune"}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSendWatchEvent(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	event := &models.WatchEvent{
		EventType: models.WatchEventPlayStart,
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		Timestamp: time.Now().UTC(),
	}

	client := newTestClient(server.URL)
	if err := client.SendWatchEvent(context.Background(), event); err != nil {
		t.Fatalf("SendWatchEvent failed: %v", err)
	}
	if path != "/api/events/watch" {
		t.Errorf("unexpected path %s", path)
	}
}

func TestSendEventPassesRawPayload(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payload := []byte(`{"eventType":"user_sync","version":"1.0"}`)
	client := newTestClient(server.URL)
	if err := client.SendEvent(context.Background(), payload); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	if string(body) != string(payload) {
		t.Errorf("payload altered in transit: %s", body)
	}
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
}

func TestTestConnectionUnreachable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	if err := client.TestConnection(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestBreakerClientDelegates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		case "/api/recommendations/" + uuid.Nil.String():
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"itemName":"Dune","itemType":"Movie","score":0.5}]`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	breaker := NewBreakerClient(newTestClient(server.URL))

	if err := breaker.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection through breaker failed: %v", err)
	}

	got, err := breaker.Recommendations(context.Background(), uuid.Nil, 1)
	if err != nil {
		t.Fatalf("Recommendations through breaker failed: %v", err)
	}
	if len(got) != 1 || got[0].ItemName != "Dune" {
		t.Errorf("unexpected candidates: %+v", got)
	}
}
