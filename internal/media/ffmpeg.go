package media

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EncodeOptions carries the final-encode target parameters.
type EncodeOptions struct {
	Width        int
	Height       int
	VideoCodec   string
	VideoBitrate string
	AudioCodec   string
	AudioBitrate string
	FrameRate    int
	SubtitlePath string
}

// CutArgs builds a stream-copied extraction of exactly duration seconds
// starting at start. With loop set, the input is looped indefinitely so a
// short source still covers the requested length.
func CutArgs(input string, start, duration float64, loop bool, output string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args,
		"-ss", FormatSeconds(start),
		"-i", input,
		"-t", FormatSeconds(duration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		output,
	)
	return args
}

// ConcatArgs builds a stream-copied concatenation of the clips listed in the
// concat descriptor file.
func ConcatArgs(listPath, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	}
}

// EncodeArgs builds the final encode: scale to fit the portrait target
// preserving aspect ratio, pad to exact dimensions, optionally burn in the
// subtitle track, map the merged audio, and enable fast start so playback
// can begin before the full file downloads.
func EncodeArgs(videoIn, audioIn string, opts EncodeOptions, output string) []string {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		opts.Width, opts.Height, opts.Width, opts.Height,
	)
	if opts.SubtitlePath != "" {
		filter += ",ass=" + escapeFilterPath(opts.SubtitlePath)
	}

	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoIn,
		"-i", audioIn,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-vf", filter,
		"-c:v", opts.VideoCodec,
		"-b:v", opts.VideoBitrate,
		"-r", strconv.Itoa(opts.FrameRate),
		"-c:a", opts.AudioCodec,
		"-b:a", opts.AudioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		output,
	}
}

// WriteConcatList writes a concat demuxer descriptor referencing each input
// by absolute path. Paths are single-quoted with embedded quotes escaped the
// way the demuxer expects.
func WriteConcatList(path string, inputs []string) error {
	var b strings.Builder
	for _, input := range inputs {
		b.WriteString("file ")
		b.WriteString(quoteConcatPath(input))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// FormatSeconds renders a duration in seconds with millisecond precision,
// the form ffmpeg accepts for -ss and -t.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

func quoteConcatPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter argument,
// where colons, quotes, and backslashes are syntax.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		":", `\:`,
		"'", `\'`,
	)
	return "'" + replacer.Replace(path) + "'"
}
