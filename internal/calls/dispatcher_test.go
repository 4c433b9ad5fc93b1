package calls_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cadence/internal/calls"
)

type recordingHandler struct {
	mu      sync.Mutex
	perChat map[int64][]string
	block   chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{perChat: make(map[int64][]string)}
}

func (h *recordingHandler) OnTrackEnded(ctx context.Context, chatID int64) error {
	if h.block != nil {
		<-h.block
	}
	h.record(chatID, "track_ended")
	return nil
}

func (h *recordingHandler) OnCallGone(chatID int64) {
	h.record(chatID, "call_gone")
}

func (h *recordingHandler) record(chatID int64, event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.perChat[chatID] = append(h.perChat[chatID], event)
}

func (h *recordingHandler) events(chatID int64) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.perChat[chatID]))
	copy(out, h.perChat[chatID])
	return out
}

func runDispatcher(t *testing.T, d *calls.Dispatcher) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher did not shut down")
		}
	}
}

func TestDispatcherPreservesPerChatOrder(t *testing.T) {
	handler := newRecordingHandler()
	d := calls.NewDispatcher(handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stop := runDispatcher(t, d)

	const events = 10
	for i := 0; i < events; i++ {
		d.Submit(calls.Event{Kind: calls.EventTrackEnded, ChatID: -1})
	}
	d.Submit(calls.Event{Kind: calls.EventClosed, ChatID: -1})

	deadline := time.Now().Add(5 * time.Second)
	for len(handler.events(-1)) < events+1 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for events, got %v", handler.events(-1))
		}
		time.Sleep(5 * time.Millisecond)
	}
	stop()

	got := handler.events(-1)
	for i := 0; i < events; i++ {
		if got[i] != "track_ended" {
			t.Fatalf("event %d: expected track_ended, got %q", i, got[i])
		}
	}
	if got[events] != "call_gone" {
		t.Fatalf("expected call_gone last, got %q", got[events])
	}
}

func TestDispatcherChatsDoNotBlockEachOther(t *testing.T) {
	handler := newRecordingHandler()
	handler.block = make(chan struct{})
	d := calls.NewDispatcher(handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stop := runDispatcher(t, d)

	// Chat -1's worker parks inside its handler; chat -2 must still drain.
	d.Submit(calls.Event{Kind: calls.EventTrackEnded, ChatID: -1})
	d.Submit(calls.Event{Kind: calls.EventKicked, ChatID: -2})

	deadline := time.Now().Add(5 * time.Second)
	for len(handler.events(-2)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("chat -2 event stuck behind chat -1's handler")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := handler.events(-1); len(got) != 0 {
		t.Fatalf("chat -1 handler should still be blocked, got %v", got)
	}

	close(handler.block)
	stop()
}

func TestDispatcherRoutesKindsToHandlers(t *testing.T) {
	tests := []struct {
		kind calls.EventKind
		want string
	}{
		{calls.EventTrackEnded, "track_ended"},
		{calls.EventKicked, "call_gone"},
		{calls.EventLeft, "call_gone"},
		{calls.EventClosed, "call_gone"},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			handler := newRecordingHandler()
			d := calls.NewDispatcher(handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
			stop := runDispatcher(t, d)

			d.Submit(calls.Event{Kind: tc.kind, ChatID: -9})

			deadline := time.Now().Add(5 * time.Second)
			for len(handler.events(-9)) == 0 {
				if time.Now().After(deadline) {
					t.Fatalf("timed out waiting for %s", tc.kind)
				}
				time.Sleep(5 * time.Millisecond)
			}
			stop()

			if got := handler.events(-9); got[0] != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got[0])
			}
		})
	}
}

func TestDispatcherKeepsBackloggedEvents(t *testing.T) {
	handler := newRecordingHandler()
	handler.block = make(chan struct{})
	d := calls.NewDispatcher(handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stop := runDispatcher(t, d)

	// With the worker parked in its handler the chat's queue fills up and
	// the router has to wait; every event must still come out the far end.
	const events = 20
	for i := 0; i < events; i++ {
		d.Submit(calls.Event{Kind: calls.EventTrackEnded, ChatID: -1})
	}
	close(handler.block)

	deadline := time.Now().Add(5 * time.Second)
	for len(handler.events(-1)) < events {
		if time.Now().After(deadline) {
			t.Fatalf("delivered %d of %d events", len(handler.events(-1)), events)
		}
		time.Sleep(5 * time.Millisecond)
	}
	stop()

	if got := handler.events(-1); len(got) != events {
		t.Fatalf("expected exactly %d events, got %d", events, len(got))
	}
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	handler := newRecordingHandler()
	d := calls.NewDispatcher(handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stop := runDispatcher(t, d)

	for chat := int64(1); chat <= 4; chat++ {
		for i := 0; i < 3; i++ {
			d.Submit(calls.Event{Kind: calls.EventTrackEnded, ChatID: chat})
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		total := 0
		for chat := int64(1); chat <= 4; chat++ {
			total += len(handler.events(chat))
		}
		if total == 12 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out draining, delivered %d of 12", total)
		}
		time.Sleep(5 * time.Millisecond)
	}
	stop()

	for chat := int64(1); chat <= 4; chat++ {
		if got := handler.events(chat); len(got) != 3 {
			t.Fatalf("chat %d: expected 3 events, got %v", chat, got)
		}
		for i, ev := range handler.events(chat) {
			if ev != "track_ended" {
				t.Fatalf("chat %d event %d: unexpected %q", chat, i, ev)
			}
		}
	}
}
