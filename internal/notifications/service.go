package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cadence/internal/config"
)

const userAgent = "Cadence-Go/0.1.0"

// Service defines the notification surface exposed to the call coordinator.
type Service interface {
	NotifyCallStarted(ctx context.Context, chatID int64, title string) error
	NotifyCallEnded(ctx context.Context, chatID int64) error
	NotifyTrackChanged(ctx context.Context, chatID int64, title string) error
	NotifyTrackSkipped(ctx context.Context, chatID int64, title string) error
	NotifyStreamEnded(ctx context.Context, chatID int64) error
	NotifyStreamFailed(ctx context.Context, chatID int64, cause error) error
	NotifyVolumeChanged(ctx context.Context, chatID int64, volume int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by a webhook endpoint when
// configured. When no webhook URL is configured, a noop implementation is
// returned.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &webhookService{
		endpoint: endpoint,
		client:   client,
	}
}

type payload struct {
	Event   string `json:"event"`
	ChatID  int64  `json:"chat_id,omitempty"`
	Message string `json:"message"`
}

type webhookService struct {
	endpoint string
	client   *http.Client
}

func (w *webhookService) NotifyCallStarted(ctx context.Context, chatID int64, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		Event:   "call_started",
		ChatID:  chatID,
		Message: fmt.Sprintf("Started streaming: %s", title),
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyCallEnded(ctx context.Context, chatID int64) error {
	data := payload{
		Event:   "call_ended",
		ChatID:  chatID,
		Message: "Call ended",
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyTrackChanged(ctx context.Context, chatID int64, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		Event:   "track_changed",
		ChatID:  chatID,
		Message: fmt.Sprintf("Now streaming: %s", title),
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyTrackSkipped(ctx context.Context, chatID int64, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		Event:   "track_skipped",
		ChatID:  chatID,
		Message: fmt.Sprintf("Skipped: %s", title),
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyStreamEnded(ctx context.Context, chatID int64) error {
	data := payload{
		Event:   "stream_ended",
		ChatID:  chatID,
		Message: "Playlist finished, leaving call",
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyStreamFailed(ctx context.Context, chatID int64, cause error) error {
	var builder strings.Builder
	builder.WriteString("Stream failed")
	if cause != nil {
		builder.WriteString(": ")
		builder.WriteString(strings.TrimSpace(cause.Error()))
	}
	data := payload{
		Event:   "stream_failed",
		ChatID:  chatID,
		Message: builder.String(),
	}
	return w.send(ctx, data)
}

func (w *webhookService) NotifyVolumeChanged(ctx context.Context, chatID int64, volume int) error {
	data := payload{
		Event:   "volume_changed",
		ChatID:  chatID,
		Message: fmt.Sprintf("Volume set to %d", volume),
	}
	return w.send(ctx, data)
}

func (w *webhookService) TestNotification(ctx context.Context) error {
	data := payload{
		Event:   "test",
		Message: "Notification system test",
	}
	return w.send(ctx, data)
}

func (w *webhookService) send(ctx context.Context, data payload) error {
	if w == nil || w.client == nil {
		return nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Noop returns a service that silently drops every notification.
func Noop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyCallStarted(context.Context, int64, string) error  { return nil }
func (noopService) NotifyCallEnded(context.Context, int64) error            { return nil }
func (noopService) NotifyTrackChanged(context.Context, int64, string) error { return nil }
func (noopService) NotifyTrackSkipped(context.Context, int64, string) error { return nil }
func (noopService) NotifyStreamEnded(context.Context, int64) error          { return nil }
func (noopService) NotifyStreamFailed(context.Context, int64, error) error  { return nil }
func (noopService) NotifyVolumeChanged(context.Context, int64, int) error   { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
