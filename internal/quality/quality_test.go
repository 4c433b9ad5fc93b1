package quality_test

import (
	"errors"
	"testing"

	"cadence/internal/quality"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		input   string
		want    quality.Tier
		wantErr bool
	}{
		{input: "low", want: quality.TierLow},
		{input: "medium", want: quality.TierMedium},
		{input: "high", want: quality.TierHigh},
		{input: " High ", want: quality.TierHigh},
		{input: "MEDIUM", want: quality.TierMedium},
		{input: "ultra", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := quality.ParseTier(tc.input)
			if tc.wantErr {
				if !errors.Is(err, quality.ErrInvalidQuality) {
					t.Fatalf("expected ErrInvalidQuality, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		tier  quality.Tier
		audio quality.AudioProfile
		video quality.VideoProfile
	}{
		{quality.TierLow, quality.AudioLow, quality.VideoLow},
		{quality.TierMedium, quality.AudioMedium, quality.VideoMedium},
		{quality.TierHigh, quality.AudioHigh, quality.VideoHigh},
	}

	for _, tc := range tests {
		audio, video, err := quality.Profiles(tc.tier)
		if err != nil {
			t.Fatalf("tier %q: unexpected error: %v", tc.tier, err)
		}
		if audio != tc.audio || video != tc.video {
			t.Fatalf("tier %q: expected (%q, %q), got (%q, %q)", tc.tier, tc.audio, tc.video, audio, video)
		}
	}
}

func TestProfilesRejectsUnknownTier(t *testing.T) {
	if _, _, err := quality.Profiles(quality.Tier("4k")); !errors.Is(err, quality.ErrInvalidQuality) {
		t.Fatalf("expected ErrInvalidQuality, got %v", err)
	}
}
