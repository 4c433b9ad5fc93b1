package callengine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cadence/internal/calls"
	"cadence/internal/config"
	"cadence/internal/logging"
)

// Sink receives decoded lifecycle events. The dispatcher implements it.
type Sink interface {
	Submit(ev calls.Event)
}

// EventStream tails the engine's event feed and forwards every lifecycle
// event to the sink. The feed is line-delimited JSON over a long-lived
// response body.
type EventStream struct {
	baseURL    string
	token      string
	client     HTTPDoer
	sink       Sink
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewEventStream builds an event stream from configuration. The stream
// uses its own unbounded http.Client: the feed response is expected to
// stay open indefinitely, so a request timeout would sever it.
func NewEventStream(cfg *config.Config, sink Sink, logger *slog.Logger) *EventStream {
	retry := time.Duration(cfg.Engine.EventRetrySeconds) * time.Second
	if retry <= 0 {
		retry = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStream{
		baseURL:    strings.TrimRight(cfg.Engine.BaseURL, "/"),
		token:      cfg.Engine.APIToken,
		client:     &http.Client{},
		sink:       sink,
		logger:     logger,
		retryDelay: retry,
	}
}

// Run tails the feed until ctx is canceled, reconnecting after the retry
// delay whenever the connection drops or the feed errors.
func (s *EventStream) Run(ctx context.Context) {
	for {
		if err := s.tail(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("event feed dropped", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

type wireEvent struct {
	Kind   string `json:"kind"`
	ChatID int64  `json:"chat_id"`
}

func (s *EventStream) tail(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/events", nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect event feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event feed returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev wireEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			s.logger.Warn("malformed feed line", logging.Error(err))
			continue
		}
		s.sink.Submit(calls.Event{Kind: calls.EventKind(ev.Kind), ChatID: ev.ChatID})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event feed: %w", err)
	}
	return nil
}
