package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"cadence/internal/chatstore"
	"cadence/internal/logging"
	"cadence/internal/notifications"
	"cadence/internal/playlist"
	"cadence/internal/quality"
)

// maxStartAttempts bounds the join-and-retry loop in StartCall. The first
// attempt plus two recoveries is enough for the invite/join/promote path;
// anything beyond that is a real failure, not a membership race.
const maxStartAttempts = 3

// Deps collects the coordinator's collaborators.
type Deps struct {
	Store    *playlist.Store
	Chats    ChatConfigs
	Resolver Resolver
	Engine   Engine
	Promoter Promoter
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Coordinator drives call and playlist state for every chat the daemon
// serves. Methods are safe for concurrent use; compound operations for
// one chat hold that chat's operation lock end-to-end, so a lifecycle
// event arriving during a command queues behind it instead of
// interleaving with its queue reads and stream changes.
type Coordinator struct {
	store    *playlist.Store
	chats    ChatConfigs
	resolver Resolver
	engine   Engine
	promoter Promoter
	notifier notifications.Service
	logger   *slog.Logger

	opMu sync.Mutex
	ops  map[int64]*sync.Mutex
}

// NewCoordinator wires a coordinator from its dependencies. A nil logger
// falls back to slog.Default and a nil notifier to the noop service.
func NewCoordinator(deps Deps) (*Coordinator, error) {
	if deps.Store == nil {
		return nil, errors.New("calls: playlist store is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("calls: engine is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("calls: resolver is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Coordinator{
		store:    deps.Store,
		chats:    deps.Chats,
		resolver: deps.Resolver,
		engine:   deps.Engine,
		promoter: deps.Promoter,
		notifier: notifier,
		logger:   logger,
		ops:      make(map[int64]*sync.Mutex),
	}, nil
}

// chatOp returns the chat's operation lock, creating it on first use.
// Locks are never removed; the table is bounded by the chats the process
// serves. Unlike the store's queue locks, this one is deliberately held
// across resolver and engine calls: that is what serializes a skip
// against a simultaneous natural track-end for the same chat.
func (c *Coordinator) chatOp(chatID int64) *sync.Mutex {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	lock, ok := c.ops[chatID]
	if !ok {
		lock = &sync.Mutex{}
		c.ops[chatID] = lock
	}
	return lock
}

// EnqueueRemote appends a remote track request and returns its one-based
// queue position. Position 1 means the caller should follow up with
// StartCall to begin streaming.
func (c *Coordinator) EnqueueRemote(chatID int64, track playlist.Track) (int, error) {
	if _, ok := track.Source.(playlist.RemoteSource); !ok {
		return 0, fmt.Errorf("calls: enqueue remote with %T source", track.Source)
	}
	return c.store.Insert(chatID, track), nil
}

// EnqueueLocal appends a local-file track request and returns its
// one-based queue position.
func (c *Coordinator) EnqueueLocal(chatID int64, track playlist.Track) (int, error) {
	if _, ok := track.Source.(playlist.LocalSource); !ok {
		return 0, fmt.Errorf("calls: enqueue local with %T source", track.Source)
	}
	return c.store.Insert(chatID, track), nil
}

// Peek returns the current track and the pending tracks without mutating
// the queue. The third return is false when the chat has nothing queued.
func (c *Coordinator) Peek(chatID int64) (playlist.Track, []playlist.Track, bool) {
	return c.store.Snapshot(chatID)
}

// StartCall creates a call for the chat and streams the queue's front
// track into it. When the engine account cannot address the chat yet, the
// coordinator exports an invite link, joins, promotes itself, and retries,
// up to maxStartAttempts creation attempts in total.
func (c *Coordinator) StartCall(ctx context.Context, chatID int64) error {
	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	current, ok := c.store.Current(chatID)
	if !ok {
		return fmt.Errorf("start call for chat %d: %w", chatID, playlist.ErrEmptyQueue)
	}

	var err error
	for attempt := 1; attempt <= maxStartAttempts; attempt++ {
		err = c.engine.CreateCall(ctx, chatID, uuid.NewString())
		if err == nil {
			break
		}
		if !errors.Is(err, ErrInvalidPeer) {
			return fmt.Errorf("create call: %w", err)
		}
		if attempt == maxStartAttempts {
			break
		}
		if joinErr := c.joinChat(ctx, chatID); joinErr != nil {
			return fmt.Errorf("join chat %d: %w", chatID, joinErr)
		}
	}
	if err != nil {
		return fmt.Errorf("create call after %d attempts: %w", maxStartAttempts, err)
	}

	src, err := c.streamSource(ctx, chatID, current)
	if err != nil {
		return err
	}
	if err := c.engine.ChangeStream(ctx, chatID, src); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	c.notify(ctx, chatID, "call started", func(ctx context.Context) error {
		return c.notifier.NotifyCallStarted(ctx, chatID, current.Title)
	})
	c.logger.Info("call started",
		logging.Int64(logging.FieldChatID, chatID),
		logging.String(logging.FieldTitle, current.Title))
	return nil
}

// joinChat runs the ErrInvalidPeer recovery: invite link, join, promote.
func (c *Coordinator) joinChat(ctx context.Context, chatID int64) error {
	if c.promoter == nil {
		return errors.New("no promoter configured")
	}
	link, err := c.promoter.ExportInviteLink(ctx, chatID)
	if err != nil {
		return fmt.Errorf("export invite link: %w", err)
	}
	if err := c.promoter.JoinChat(ctx, link); err != nil {
		return fmt.Errorf("join via invite link: %w", err)
	}
	if err := c.promoter.PromoteSelf(ctx, chatID); err != nil {
		return fmt.Errorf("promote self: %w", err)
	}
	return nil
}

// EndCall discards the chat's call. It is an error when the chat has no
// call to discard.
func (c *Coordinator) EndCall(ctx context.Context, chatID int64) error {
	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	ref, err := c.engine.ResolveCall(ctx, chatID)
	if err != nil {
		return fmt.Errorf("resolve call for chat %d: %w", chatID, err)
	}
	if err := c.engine.DiscardCall(ctx, ref); err != nil {
		return fmt.Errorf("discard call: %w", err)
	}
	c.store.Clear(chatID)
	c.notify(ctx, chatID, "call ended", func(ctx context.Context) error {
		return c.notifier.NotifyCallEnded(ctx, chatID)
	})
	return nil
}

// IsActive reports whether the chat currently has a live call by scanning
// the engine's full active-call set.
func (c *Coordinator) IsActive(ctx context.Context, chatID int64) (bool, error) {
	active, err := c.engine.ActiveCalls(ctx)
	if err != nil {
		return false, fmt.Errorf("list active calls: %w", err)
	}
	for _, id := range active {
		if id == chatID {
			return true, nil
		}
	}
	return false, nil
}

// ChangeVolume sets the call volume. Chats outside the active-call set
// get ResultNotInCall without the engine's volume method being invoked.
// The value itself is passed through untouched; what range is acceptable
// is the engine's business.
func (c *Coordinator) ChangeVolume(ctx context.Context, chatID int64, volume int) (Result, error) {
	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	active, err := c.IsActive(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !active {
		return ResultNotInCall, nil
	}

	if err := c.engine.SetVolume(ctx, chatID, volume); err != nil {
		if errors.Is(err, ErrNoCall) {
			return ResultNotInCall, nil
		}
		return "", fmt.Errorf("set volume: %w", err)
	}
	c.notify(ctx, chatID, "volume changed", func(ctx context.Context) error {
		return c.notifier.NotifyVolumeChanged(ctx, chatID, volume)
	})
	return ResultVolumeChanged, nil
}

// SetStreamingStatus pauses or resumes the active stream. Status values
// outside the two known directions are rejected here rather than passed
// through to the engine. Inactive chats short-circuit to ResultNotInCall
// before the engine is touched.
func (c *Coordinator) SetStreamingStatus(ctx context.Context, chatID int64, status StreamingStatus) (Result, error) {
	var (
		op     func(context.Context, int64) error
		result Result
	)
	switch status {
	case StatusPause:
		op, result = c.engine.Pause, ResultTrackPaused
	case StatusResume:
		op, result = c.engine.Resume, ResultTrackResumed
	default:
		return "", fmt.Errorf("calls: unknown streaming status %q", status)
	}

	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	active, err := c.IsActive(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !active {
		return ResultNotInCall, nil
	}

	if err := op(ctx, chatID); err != nil {
		if errors.Is(err, ErrNoCall) {
			return ResultNotInCall, nil
		}
		return "", fmt.Errorf("set streaming status %s: %w", status, err)
	}
	return result, nil
}

// EndStream leaves the call and clears the queue. The queue survives when
// the chat turns out to have no active call.
func (c *Coordinator) EndStream(ctx context.Context, chatID int64) (Result, error) {
	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	active, err := c.IsActive(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !active {
		return ResultNotInCall, nil
	}

	if err := c.engine.Leave(ctx, chatID); err != nil {
		if errors.Is(err, ErrNoCall) {
			return ResultNotInCall, nil
		}
		return "", fmt.Errorf("leave call: %w", err)
	}
	c.store.Clear(chatID)
	c.notify(ctx, chatID, "stream ended", func(ctx context.Context) error {
		return c.notifier.NotifyStreamEnded(ctx, chatID)
	})
	return ResultStreamEnded, nil
}

// Skip drops the current track and streams the next one. With one or zero
// tracks queued there is nothing to skip to, so the queue is left alone.
func (c *Coordinator) Skip(ctx context.Context, chatID int64) (Result, error) {
	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	if c.store.Len(chatID) <= 1 {
		return ResultNoPlaylist, nil
	}

	skipped, _ := c.store.Current(chatID)
	title, err := c.advanceAndRestream(ctx, chatID)
	if err != nil {
		c.notify(ctx, chatID, "stream failed", func(ctx context.Context) error {
			return c.notifier.NotifyStreamFailed(ctx, chatID, err)
		})
		return "", err
	}

	c.notify(ctx, chatID, "track skipped", func(ctx context.Context) error {
		return c.notifier.NotifyTrackSkipped(ctx, chatID, skipped.Title)
	})
	c.notify(ctx, chatID, "track changed", func(ctx context.Context) error {
		return c.notifier.NotifyTrackChanged(ctx, chatID, title)
	})
	return ResultTrackSkipped, nil
}

// OnTrackEnded advances the playlist when the engine reports the current
// track finished. The last track ending tears the call down; a track-ended
// event for a chat with no queue means the call is stale and is left.
func (c *Coordinator) OnTrackEnded(ctx context.Context, chatID int64) error {
	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	switch n := c.store.Len(chatID); {
	case n > 1:
		title, err := c.advanceAndRestream(ctx, chatID)
		if err != nil {
			c.notify(ctx, chatID, "stream failed", func(ctx context.Context) error {
				return c.notifier.NotifyStreamFailed(ctx, chatID, err)
			})
			return err
		}
		c.notify(ctx, chatID, "track changed", func(ctx context.Context) error {
			return c.notifier.NotifyTrackChanged(ctx, chatID, title)
		})
		return nil
	case n == 1:
		if err := c.engine.Leave(ctx, chatID); err != nil && !errors.Is(err, ErrNoCall) {
			return fmt.Errorf("leave call: %w", err)
		}
		c.store.Clear(chatID)
		c.notify(ctx, chatID, "stream ended", func(ctx context.Context) error {
			return c.notifier.NotifyStreamEnded(ctx, chatID)
		})
		return nil
	default:
		// Stale call with no backing queue.
		if err := c.engine.Leave(ctx, chatID); err != nil && !errors.Is(err, ErrNoCall) {
			return fmt.Errorf("leave stale call: %w", err)
		}
		return nil
	}
}

// OnCallGone clears the chat's queue after the engine account was kicked,
// left, or the call was closed out from under it.
func (c *Coordinator) OnCallGone(chatID int64) {
	lock := c.chatOp(chatID)
	lock.Lock()
	defer lock.Unlock()

	c.store.Clear(chatID)
	c.logger.Info("call gone, queue cleared", logging.Int64(logging.FieldChatID, chatID))
}

// advanceAndRestream removes the front track and streams the new front.
// On resolver or engine failure the queue keeps its advanced state and the
// error propagates; the previous stream has already ended either way.
// Callers hold the chat's operation lock.
func (c *Coordinator) advanceAndRestream(ctx context.Context, chatID int64) (string, error) {
	if err := c.store.Advance(chatID); err != nil {
		return "", err
	}
	next, ok := c.store.Current(chatID)
	if !ok {
		return "", fmt.Errorf("restream chat %d: %w", chatID, playlist.ErrEmptyQueue)
	}
	src, err := c.streamSource(ctx, chatID, next)
	if err != nil {
		return "", err
	}
	if err := c.engine.ChangeStream(ctx, chatID, src); err != nil {
		return "", fmt.Errorf("change stream: %w", err)
	}
	return next.Title, nil
}

// streamSource resolves a track into the engine's stream input: quality
// profiles from the chat's preference plus a direct media URL.
func (c *Coordinator) streamSource(ctx context.Context, chatID int64, track playlist.Track) (StreamSource, error) {
	tier := quality.TierMedium
	if c.chats != nil {
		stored, err := c.chats.Quality(ctx, chatID)
		switch {
		case err == nil:
			tier = stored
		case errors.Is(err, chatstore.ErrNotConfigured):
			// Unconfigured chats stream at the default tier.
		default:
			return StreamSource{}, fmt.Errorf("chat quality: %w", err)
		}
	}
	audio, video, err := quality.Profiles(tier)
	if err != nil {
		return StreamSource{}, err
	}

	var url string
	switch source := track.Source.(type) {
	case playlist.LocalSource:
		url = source.Path
	case playlist.RemoteSource:
		url, err = c.resolver.Resolve(ctx, source, track.Kind)
		if err != nil {
			return StreamSource{}, fmt.Errorf("resolve %q: %w", track.Title, err)
		}
	default:
		return StreamSource{}, fmt.Errorf("calls: track %q has no source", track.Title)
	}

	src := StreamSource{URL: url, Audio: audio}
	if track.Kind == playlist.StreamVideo {
		src.Video = video
	}
	return src, nil
}

// notify delivers a notification best-effort. Failures are logged and
// never block or fail the operation that triggered them.
func (c *Coordinator) notify(ctx context.Context, chatID int64, event string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		c.logger.Warn("notification failed",
			logging.Int64(logging.FieldChatID, chatID),
			logging.String(logging.FieldEvent, event),
			logging.Error(err))
	}
}
