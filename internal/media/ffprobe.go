package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"montage/internal/services"
)

// ProbeResult represents the parsed output from an ffprobe inspection.
type ProbeResult struct {
	Streams []ProbeStream `json:"streams"`
	Format  ProbeFormat   `json:"format"`
}

// ProbeStream describes a single stream in the media container.
type ProbeStream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ProbeFormat captures container-level metadata extracted by ffprobe.
type ProbeFormat struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

// Probe executes ffprobe against the provided path and decodes the JSON
// response.
func Probe(ctx context.Context, runner Runner, binary, path string, timeout time.Duration) (ProbeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return ProbeResult{}, services.Wrap(services.ErrValidation, "media", "probe", "empty path", nil)
	}

	output, err := runner.Run(ctx, timeout, binary,
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json", "--", path,
	)
	if err != nil {
		return ProbeResult{}, err
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// DurationSeconds returns the container duration in seconds, or 0 when
// unavailable.
func (r ProbeResult) DurationSeconds() float64 {
	return parseProbeFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when
// unavailable.
func (r ProbeResult) SizeBytes() int64 {
	size := parseProbeFloat(r.Format.Size)
	if size < 0 {
		return 0
	}
	return int64(size)
}

func parseProbeFloat(value string) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
