package compose_test

import (
	"errors"
	"strings"
	"testing"

	"montage/internal/compose"
	"montage/internal/services"
)

func TestParseJobDropsBlankParagraphs(t *testing.T) {
	payload := []byte(`{
		"taskId": 7,
		"paragraphs": [
			{"index": 0, "text": "Opening line", "shotId": 101},
			{"index": 1, "text": "   "},
			{"index": 2, "text": "Closing line", "shotId": 102}
		],
		"voiceConfig": {"type": "standard", "voiceId": "alloy"},
		"callbackUrl": "http://coordinator/internal/callback"
	}`)

	job, err := compose.ParseJob(payload)
	if err != nil {
		t.Fatalf("parse job: %v", err)
	}
	if len(job.Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs after blank drop, got %d", len(job.Paragraphs))
	}
	if job.Paragraphs[0].Index != 0 || job.Paragraphs[1].Index != 2 {
		t.Fatalf("expected original indices preserved, got %+v", job.Paragraphs)
	}
}

func TestParseJobValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		detail  string
	}{
		{
			name:    "missing task id",
			payload: `{"paragraphs":[{"index":0,"text":"a"}],"voiceConfig":{"type":"standard","voiceId":"v"},"callbackUrl":"http://x"}`,
			detail:  "task id",
		},
		{
			name:    "missing callback",
			payload: `{"taskId":1,"paragraphs":[{"index":0,"text":"a"}],"voiceConfig":{"type":"standard","voiceId":"v"}}`,
			detail:  "callback url",
		},
		{
			name:    "all paragraphs blank",
			payload: `{"taskId":1,"paragraphs":[{"index":0,"text":" "}],"voiceConfig":{"type":"standard","voiceId":"v"},"callbackUrl":"http://x"}`,
			detail:  "no narration",
		},
		{
			name:    "standard voice without id",
			payload: `{"taskId":1,"paragraphs":[{"index":0,"text":"a"}],"voiceConfig":{"type":"standard"},"callbackUrl":"http://x"}`,
			detail:  "voice id",
		},
		{
			name:    "clone voice without sample",
			payload: `{"taskId":1,"paragraphs":[{"index":0,"text":"a"}],"voiceConfig":{"type":"clone","userId":5},"callbackUrl":"http://x"}`,
			detail:  "voice sample id",
		},
		{
			name:    "clone voice without owner",
			payload: `{"taskId":1,"paragraphs":[{"index":0,"text":"a"}],"voiceConfig":{"type":"clone","voiceSampleId":9}, "callbackUrl":"http://x"}`,
			detail:  "owning user id",
		},
		{
			name:    "unknown voice type",
			payload: `{"taskId":1,"paragraphs":[{"index":0,"text":"a"}],"voiceConfig":{"type":"robot"},"callbackUrl":"http://x"}`,
			detail:  "unknown voice type",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compose.ParseJob([]byte(tc.payload))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.detail) {
				t.Fatalf("error %q missing detail %q", err.Error(), tc.detail)
			}
		})
	}
}

func TestPosition(t *testing.T) {
	if got := compose.Position(0); got != "paragraph 1" {
		t.Fatalf("expected 1-based position, got %q", got)
	}
	if got := compose.Position(4); got != "paragraph 5" {
		t.Fatalf("expected 1-based position, got %q", got)
	}
}
