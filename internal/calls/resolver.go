package calls

import (
	"context"
	"errors"

	"cadence/internal/playlist"
)

// ErrUnresolvable reports a remote source the resolver could not turn
// into a direct media URL.
var ErrUnresolvable = errors.New("calls: source unresolvable")

// Resolver turns a remote source identifier into a direct media URL for
// the requested stream kind. Local sources never reach the resolver.
type Resolver interface {
	Resolve(ctx context.Context, src playlist.RemoteSource, kind playlist.StreamKind) (string, error)
}
