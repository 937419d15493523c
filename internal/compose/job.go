package compose

import (
	"encoding/json"
	"fmt"
	"strings"

	"montage/internal/services"
)

// Voice configuration variants accepted on the wire.
const (
	VoiceStandard = "standard"
	VoiceClone    = "clone"
)

// Paragraph is one unit of narration text with its mapped source shot.
// Index is the stable 0-based ordering key assigned by the script writer.
type Paragraph struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	ShotID int64  `json:"shotId,omitempty"`
}

// VoiceConfig selects either a stock synthesis voice or a user-owned clone.
type VoiceConfig struct {
	Type          string `json:"type"`
	VoiceID       string `json:"voiceId,omitempty"`
	VoiceSampleID int64  `json:"voiceSampleId,omitempty"`
	UserID        int64  `json:"userId,omitempty"`
}

// Job is a compose request as delivered by the task coordinator. Immutable
// once dispatched; delivery is at-least-once, so every stage must tolerate a
// clean re-run.
type Job struct {
	TaskID      int64       `json:"taskId"`
	Paragraphs  []Paragraph `json:"paragraphs"`
	Voice       VoiceConfig `json:"voiceConfig"`
	CallbackURL string      `json:"callbackUrl"`
}

// ParseJob decodes and validates an inbound job payload. Paragraphs with
// blank text are dropped here; the remaining paragraphs keep their original
// relative order.
func ParseJob(payload []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, services.Wrap(services.ErrValidation, "intake", "decode job", "", err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	job.Paragraphs = dropBlank(job.Paragraphs)
	return job, nil
}

// Validate checks structural invariants on the job before any stage runs.
func (j Job) Validate() error {
	if j.TaskID <= 0 {
		return services.Wrap(services.ErrValidation, "intake", "", "task id is required", nil)
	}
	if strings.TrimSpace(j.CallbackURL) == "" {
		return services.Wrap(services.ErrValidation, "intake", "", "callback url is required", nil)
	}
	if len(dropBlank(j.Paragraphs)) == 0 {
		return services.Wrap(services.ErrValidation, "intake", "", "job has no narration paragraphs", nil)
	}
	switch j.Voice.Type {
	case VoiceStandard:
		if strings.TrimSpace(j.Voice.VoiceID) == "" {
			return services.Wrap(services.ErrValidation, "intake", "", "standard voice requires a voice id", nil)
		}
	case VoiceClone:
		if j.Voice.VoiceSampleID <= 0 {
			return services.Wrap(services.ErrValidation, "intake", "", "clone voice requires a voice sample id", nil)
		}
		if j.Voice.UserID <= 0 {
			return services.Wrap(services.ErrValidation, "intake", "", "clone voice requires the owning user id", nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "intake", "", fmt.Sprintf("unknown voice type %q", j.Voice.Type), nil)
	}
	return nil
}

func dropBlank(paragraphs []Paragraph) []Paragraph {
	kept := make([]Paragraph, 0, len(paragraphs))
	for _, p := range paragraphs {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// Position renders a paragraph's 1-based position for user-facing messages.
func Position(i int) string {
	return fmt.Sprintf("paragraph %d", i+1)
}
