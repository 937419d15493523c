package services_test

import (
	"errors"
	"strings"
	"testing"

	"montage/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalTool, "compose", "ffmpeg concat", "exit status 1", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	for _, want := range []string{"compose", "ffmpeg concat", "exit status 1"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing detail %q", err.Error(), want)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "synthesize", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "cut", "", "missing shot", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "cut", "", "shot 9", nil), false},
		{"timeout", services.Wrap(services.ErrTimeout, "cut", "ffmpeg", "", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "", "", "no bucket", nil), false},
		{"external tool", services.Wrap(services.ErrExternalTool, "cut", "ffmpeg", "", errors.New("boom")), true},
		{"transient", services.Wrap(services.ErrTransient, "upload", "", "", nil), true},
		{"untagged", errors.New("plain"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
