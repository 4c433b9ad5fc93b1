package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"cadence/internal/calls"
	"cadence/internal/config"
	"cadence/internal/playlist"
)

const (
	// audioFormat prefers a clean m4a audio stream with a fallback to
	// whatever best audio the extractor offers.
	audioFormat = "bestaudio[ext=m4a]/bestaudio"
	// videoFormat caps resolution; call streams beyond 720p waste
	// bandwidth the call compresses away anyway.
	videoFormat = "best[height<=?720]"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Resolver extracts direct media URLs with yt-dlp.
type Resolver struct {
	binary  string
	timeout time.Duration
	run     commandRunner
}

// NewResolver builds a resolver from configuration.
func NewResolver(cfg *config.Config) *Resolver {
	binary := strings.TrimSpace(cfg.Resolver.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := time.Duration(cfg.Resolver.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		binary:  binary,
		timeout: timeout,
		run:     runCommand,
	}
}

// WithCommandRunner replaces the process launcher, for tests.
func (r *Resolver) WithCommandRunner(run commandRunner) {
	r.run = run
}

// Resolve returns a direct media URL for the source, selecting the format
// by stream kind. Sources the extractor cannot handle map to
// calls.ErrUnresolvable.
func (r *Resolver) Resolve(ctx context.Context, src playlist.RemoteSource, kind playlist.StreamKind) (string, error) {
	target := strings.TrimSpace(src.URL)
	if target == "" {
		target = strings.TrimSpace(src.ID)
	}
	if target == "" {
		return "", fmt.Errorf("ytdlp: %w: empty source", calls.ErrUnresolvable)
	}

	format := audioFormat
	if kind == playlist.StreamVideo {
		format = videoFormat
	}
	args := []string{"-g", "-f", format, "--no-playlist", target}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	output, err := r.run(ctx, r.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ytdlp: resolve %q: %w", target, ctx.Err())
		}
		return "", fmt.Errorf("ytdlp: resolve %q: %w: %s", target, calls.ErrUnresolvable, firstLine(output, err))
	}

	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("ytdlp: resolve %q: %w: empty output", target, calls.ErrUnresolvable)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// firstLine condenses failed-run output into a single error detail.
func firstLine(output []byte, err error) string {
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return err.Error()
}
