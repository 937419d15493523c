// Package media wraps the external ffmpeg/ffprobe subprocesses behind a
// single Runner with uniform timeout and output-capture semantics, and
// provides the argument builders for probe, cut, concat, and final encode.
package media
