package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cadence/internal/config"
	"cadence/internal/notifications"
)

func TestNewServiceReturnsNoopWhenWebhookMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCallStarted(context.Background(), -100, "Example"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestWebhookServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name          string
		notify        func(svc notifications.Service) error
		expectEvent   string
		expectChatID  int64
		expectMessage string
	}{
		{
			name: "call started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyCallStarted(context.Background(), -100, "Bohemian Rhapsody")
			},
			expectEvent:   "call_started",
			expectChatID:  -100,
			expectMessage: "Started streaming: Bohemian Rhapsody",
		},
		{
			name: "track changed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyTrackChanged(context.Background(), -100, "Under Pressure")
			},
			expectEvent:   "track_changed",
			expectChatID:  -100,
			expectMessage: "Now streaming: Under Pressure",
		},
		{
			name: "track skipped",
			notify: func(svc notifications.Service) error {
				return svc.NotifyTrackSkipped(context.Background(), -100, "Radio Ga Ga")
			},
			expectEvent:   "track_skipped",
			expectChatID:  -100,
			expectMessage: "Skipped: Radio Ga Ga",
		},
		{
			name: "stream ended",
			notify: func(svc notifications.Service) error {
				return svc.NotifyStreamEnded(context.Background(), -100)
			},
			expectEvent:   "stream_ended",
			expectChatID:  -100,
			expectMessage: "Playlist finished, leaving call",
		},
		{
			name: "stream failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyStreamFailed(context.Background(), -100, errors.New("source unavailable"))
			},
			expectEvent:   "stream_failed",
			expectChatID:  -100,
			expectMessage: "Stream failed: source unavailable",
		},
		{
			name: "volume changed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyVolumeChanged(context.Background(), -100, 75)
			},
			expectEvent:   "volume_changed",
			expectChatID:  -100,
			expectMessage: "Volume set to 75",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				Event   string `json:"event"`
				ChatID  int64  `json:"chat_id"`
				Message string `json:"message"`
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				if got := r.Header.Get("Content-Type"); got != "application/json" {
					t.Errorf("unexpected content type: %s", got)
				}
				if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
					t.Errorf("decode body: %v", err)
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.WebhookURL = server.URL
			svc := notifications.NewService(&cfg)

			if err := tc.notify(svc); err != nil {
				t.Fatalf("notify: %v", err)
			}
			if captured.Event != tc.expectEvent {
				t.Fatalf("expected event %q, got %q", tc.expectEvent, captured.Event)
			}
			if captured.ChatID != tc.expectChatID {
				t.Fatalf("expected chat id %d, got %d", tc.expectChatID, captured.ChatID)
			}
			if captured.Message != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.Message)
			}
		})
	}
}

func TestWebhookServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.WebhookURL = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
