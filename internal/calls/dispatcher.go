package calls

import (
	"context"
	"log/slog"
	"sync"

	"cadence/internal/logging"
)

// EventKind tags a lifecycle event from the engine.
type EventKind string

const (
	// EventTrackEnded fires when the current stream plays out.
	EventTrackEnded EventKind = "track_ended"
	// EventKicked fires when the engine account is removed from the chat.
	EventKicked EventKind = "kicked"
	// EventLeft fires when the engine account leaves the chat.
	EventLeft EventKind = "left"
	// EventClosed fires when the call is closed from the chat side.
	EventClosed EventKind = "closed"
)

// Event is one lifecycle notification for one chat.
type Event struct {
	Kind   EventKind
	ChatID int64
}

// Handler consumes lifecycle events. The Coordinator implements it.
type Handler interface {
	OnTrackEnded(ctx context.Context, chatID int64) error
	OnCallGone(chatID int64)
}

const (
	inboxSize        = 64
	perChatQueueSize = 16
)

// Dispatcher fans lifecycle events out to one worker goroutine per chat,
// so a chat's events are handled in arrival order while chats never block
// each other.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
	events  chan Event

	workers map[int64]chan Event
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher for the given handler. A nil logger
// falls back to slog.Default.
func NewDispatcher(handler Handler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handler: handler,
		logger:  logger,
		events:  make(chan Event, inboxSize),
		workers: make(map[int64]chan Event),
	}
}

// Submit hands an event to the dispatcher. It blocks when the shared
// inbox is saturated, which backpressures the event source rather than
// dropping lifecycle transitions.
func (d *Dispatcher) Submit(ev Event) {
	d.events <- ev
}

// Run routes events until ctx is canceled, then drains the per-chat
// queues and returns. The workers map is touched only from this
// goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, ch := range d.workers {
				close(ch)
			}
			d.wg.Wait()
			return
		case ev := <-d.events:
			d.route(ctx, ev)
		}
	}
}

func (d *Dispatcher) route(ctx context.Context, ev Event) {
	ch, ok := d.workers[ev.ChatID]
	if !ok {
		ch = make(chan Event, perChatQueueSize)
		d.workers[ev.ChatID] = ch
		d.wg.Add(1)
		go d.runWorker(ctx, ch)
	}
	// Lifecycle transitions must not be lost: when a chat's queue is full
	// the router waits, and the shared inbox backpressures the source.
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, ch <-chan Event) {
	defer d.wg.Done()
	for ev := range ch {
		d.handle(ctx, ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventTrackEnded:
		if err := d.handler.OnTrackEnded(ctx, ev.ChatID); err != nil {
			d.logger.Error("track-ended handling failed",
				logging.Int64(logging.FieldChatID, ev.ChatID),
				logging.Error(err))
		}
	case EventKicked, EventLeft, EventClosed:
		d.handler.OnCallGone(ev.ChatID)
	default:
		d.logger.Warn("unknown lifecycle event",
			logging.Int64(logging.FieldChatID, ev.ChatID),
			logging.String(logging.FieldEvent, string(ev.Kind)))
	}
}
