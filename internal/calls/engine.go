package calls

import (
	"context"
	"errors"

	"cadence/internal/quality"
)

var (
	// ErrInvalidPeer reports that the engine account cannot address the
	// chat yet, usually because it has not joined. StartCall recovers by
	// joining via invite link and retrying.
	ErrInvalidPeer = errors.New("calls: invalid peer")

	// ErrNoCall reports an operation against a chat with no active call.
	ErrNoCall = errors.New("calls: no active call")
)

// CallRef identifies one active call inside the engine.
type CallRef struct {
	ID     string
	ChatID int64
}

// StreamSource is the fully resolved media the engine should stream.
// Video is empty for audio-only tracks.
type StreamSource struct {
	URL   string
	Audio quality.AudioProfile
	Video quality.VideoProfile
}

// Engine abstracts the streaming call backend. Implementations return
// ErrNoCall for stream operations against chats without an active call
// and ErrInvalidPeer from CreateCall when the chat is not yet reachable.
type Engine interface {
	CreateCall(ctx context.Context, chatID int64, randomID string) error
	ResolveCall(ctx context.Context, chatID int64) (CallRef, error)
	DiscardCall(ctx context.Context, ref CallRef) error
	ActiveCalls(ctx context.Context) ([]int64, error)
	SetVolume(ctx context.Context, chatID int64, volume int) error
	Pause(ctx context.Context, chatID int64) error
	Resume(ctx context.Context, chatID int64) error
	Leave(ctx context.Context, chatID int64) error
	ChangeStream(ctx context.Context, chatID int64, src StreamSource) error
}

// Promoter covers the recovery path for ErrInvalidPeer: make the engine
// account a member of the chat with enough rights to manage the call.
type Promoter interface {
	ExportInviteLink(ctx context.Context, chatID int64) (string, error)
	JoinChat(ctx context.Context, inviteLink string) error
	PromoteSelf(ctx context.Context, chatID int64) error
}

// ChatConfigs exposes the per-chat quality preference. Lookups for chats
// without configuration fall back to the medium tier in the coordinator.
type ChatConfigs interface {
	Quality(ctx context.Context, chatID int64) (quality.Tier, error)
}
