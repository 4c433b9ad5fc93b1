// Package quality maps the stored per-chat quality preference onto the
// opaque audio and video profiles the call engine consumes. The core never
// interprets the profiles beyond selecting among the three fixed tiers.
package quality

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuality reports a configured quality value outside the three
// supported tiers. The value is surfaced to the caller, never corrected.
var ErrInvalidQuality = errors.New("invalid quality tier")

// Tier is a chat's configured quality preference.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// AudioProfile is an opaque audio-quality token understood by the engine.
type AudioProfile string

const (
	AudioLow    AudioProfile = "audio-low"
	AudioMedium AudioProfile = "audio-medium"
	AudioHigh   AudioProfile = "audio-high"
)

// VideoProfile is an opaque video-quality token understood by the engine.
type VideoProfile string

const (
	VideoLow    VideoProfile = "video-low"
	VideoMedium VideoProfile = "video-medium"
	VideoHigh   VideoProfile = "video-high"
)

// ParseTier validates a stored quality string. Matching is case-insensitive
// to tolerate hand-edited configuration rows.
func ParseTier(value string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierLow:
		return TierLow, nil
	case TierMedium:
		return TierMedium, nil
	case TierHigh:
		return TierHigh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQuality, value)
	}
}

// Profiles resolves a tier to its audio and video profile pair.
func Profiles(tier Tier) (AudioProfile, VideoProfile, error) {
	switch tier {
	case TierLow:
		return AudioLow, VideoLow, nil
	case TierMedium:
		return AudioMedium, VideoMedium, nil
	case TierHigh:
		return AudioHigh, VideoHigh, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidQuality, tier)
	}
}
