package tts

import (
	"context"
	"fmt"
	"strings"

	"montage/internal/catalog"
	"montage/internal/compose"
	"montage/internal/services"
)

// SampleLookup is the voice-sample resolution boundary. The catalog store
// satisfies it.
type SampleLookup interface {
	VoiceSampleByID(ctx context.Context, id int64) (*catalog.VoiceSample, error)
}

// ResolveVoice maps a job's voice configuration to the concrete synthesis
// voice identifier. Standard voices pass through; clone voices must be fully
// trained and owned by the requesting user.
func ResolveVoice(ctx context.Context, lookup SampleLookup, cfg compose.VoiceConfig) (string, error) {
	switch cfg.Type {
	case compose.VoiceStandard:
		voiceID := strings.TrimSpace(cfg.VoiceID)
		if voiceID == "" {
			return "", services.Wrap(services.ErrValidation, "synthesize", "resolve voice", "standard voice requires a voice id", nil)
		}
		return voiceID, nil
	case compose.VoiceClone:
		sample, err := lookup.VoiceSampleByID(ctx, cfg.VoiceSampleID)
		if err != nil {
			return "", err
		}
		if sample.Status != "completed" {
			return "", services.Wrap(services.ErrValidation, "synthesize", "resolve voice",
				fmt.Sprintf("clone voice %d is still training (status %q)", cfg.VoiceSampleID, sample.Status), nil)
		}
		if sample.OwnerUserID != cfg.UserID {
			return "", services.Wrap(services.ErrValidation, "synthesize", "resolve voice",
				fmt.Sprintf("clone voice %d does not belong to user %d", cfg.VoiceSampleID, cfg.UserID), nil)
		}
		if strings.TrimSpace(sample.CloneVoiceID) == "" {
			return "", services.Wrap(services.ErrValidation, "synthesize", "resolve voice",
				fmt.Sprintf("clone voice %d has no synthesis voice attached", cfg.VoiceSampleID), nil)
		}
		return sample.CloneVoiceID, nil
	default:
		return "", services.Wrap(services.ErrValidation, "synthesize", "resolve voice",
			fmt.Sprintf("unknown voice type %q", cfg.Type), nil)
	}
}
