package playlist

// StreamKind distinguishes audio-only tracks from tracks carrying video.
type StreamKind string

const (
	// StreamAudio streams a single audio feed into the call.
	StreamAudio StreamKind = "audio"
	// StreamVideo streams video with audio extracted from the same source.
	StreamVideo StreamKind = "video"
)

// Source describes where a track's media comes from. Exactly one concrete
// variant exists per track: RemoteSource for media that still needs a
// direct URL resolved from an identifier, LocalSource for files already
// on disk.
type Source interface {
	isSource()
}

// RemoteSource identifies media hosted remotely. ID is the provider
// identifier handed to the resolver; URL is the original page URL kept
// for display.
type RemoteSource struct {
	ID  string
	URL string
}

func (RemoteSource) isSource() {}

// LocalSource points at an already-downloaded file.
type LocalSource struct {
	Path string
}

func (LocalSource) isSource() {}

// Track is one queued playable item.
type Track struct {
	UserID   int64
	Title    string
	Duration string
	Kind     StreamKind
	Source   Source
}
