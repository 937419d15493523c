package tts

import (
	"context"

	"montage/internal/services"
)

// Fragment is one chunk of synthesized audio. Providers may split long text
// into several fragments; fragment bytes concatenate directly in the target
// container.
type Fragment struct {
	Data     []byte
	Duration float64
}

// Synthesizer produces narration audio for one paragraph of text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]Fragment, error)
}

// Merge concatenates fragment bytes and sums fragment durations into the
// paragraph's merged audio and measured length.
func Merge(fragments []Fragment) ([]byte, float64, error) {
	if len(fragments) == 0 {
		return nil, 0, services.Wrap(services.ErrExternalTool, "synthesize", "merge", "provider returned no audio", nil)
	}
	size := 0
	for _, f := range fragments {
		size += len(f.Data)
	}
	merged := make([]byte, 0, size)
	total := 0.0
	for _, f := range fragments {
		merged = append(merged, f.Data...)
		total += f.Duration
	}
	return merged, total, nil
}
