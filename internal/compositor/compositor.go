package compositor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"montage/internal/compose"
	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/media"
	"montage/internal/services"
	"montage/internal/storage"
)

// Sleeper pauses between upload attempts. Tests inject a no-op.
type Sleeper func(time.Duration)

// Compositor is the final assembly stage: concatenate the cut clips,
// assemble the narration track, encode to the portrait target, and upload
// the result. Intermediates are removed even when a step fails.
type Compositor struct {
	store  storage.Client
	runner media.Runner
	media  config.Media
	upload config.Upload
	logger *slog.Logger
	sleep  Sleeper
}

// New constructs the compositor stage.
func New(store storage.Client, runner media.Runner, mediaCfg config.Media, uploadCfg config.Upload, logger *slog.Logger) *Compositor {
	return &Compositor{
		store:  store,
		runner: runner,
		media:  mediaCfg,
		upload: uploadCfg,
		logger: logging.NewComponentLogger(logger, "compositor"),
		sleep:  time.Sleep,
	}
}

// WithSleeper injects the inter-attempt pause for tests.
func (c *Compositor) WithSleeper(sleep Sleeper) *Compositor {
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// Run builds and uploads the final composition. subtitlePath may be empty
// when the subtitle track is disabled. The returned composition's path is
// the uploaded file left in scratchDir; every other intermediate is gone by
// the time Run returns, success or not.
func (c *Compositor) Run(ctx context.Context, taskID int64, segments []compose.Segment, audio []compose.ParagraphAudio, subtitlePath, scratchDir string) (compose.Composition, error) {
	if len(segments) == 0 || len(audio) == 0 {
		return compose.Composition{}, services.Wrap(services.ErrValidation, "compose", "", "nothing to compose", nil)
	}

	cleanup := newCleanupSet(c.logger)
	defer cleanup.run()

	videoPath, err := c.concatClips(ctx, segments, scratchDir, cleanup)
	if err != nil {
		return compose.Composition{}, composeFailed("concat clips", err)
	}

	audioPath, err := c.assembleNarration(ctx, taskID, audio, scratchDir, cleanup)
	if err != nil {
		return compose.Composition{}, composeFailed("assemble narration", err)
	}

	finalPath := filepath.Join(scratchDir, "final.mp4")
	opts := media.EncodeOptions{
		Width:        c.media.TargetWidth,
		Height:       c.media.TargetHeight,
		VideoCodec:   c.media.VideoCodec,
		VideoBitrate: c.media.VideoBitrate,
		AudioCodec:   c.media.AudioCodec,
		AudioBitrate: c.media.AudioBitrate,
		FrameRate:    c.media.FrameRate,
		SubtitlePath: subtitlePath,
	}
	if _, err := c.runner.Run(ctx, c.encodeTimeout(), c.media.FFmpegBinary, media.EncodeArgs(videoPath, audioPath, opts, finalPath)...); err != nil {
		return compose.Composition{}, composeFailed("final encode", err)
	}

	composition, err := c.measure(ctx, finalPath)
	if err != nil {
		return compose.Composition{}, composeFailed("measure output", err)
	}

	if err := c.uploadWithRetries(ctx, storage.OutputKey(taskID), finalPath); err != nil {
		return compose.Composition{}, composeFailed("upload output", err)
	}

	c.logger.Info("composition uploaded",
		logging.Int64(logging.FieldTaskID, taskID),
		logging.Float64("duration_seconds", composition.Duration),
		logging.Int64("size_bytes", composition.SizeBytes),
	)
	return composition, nil
}

// concatClips stream-copies the clips into one video in paragraph order.
func (c *Compositor) concatClips(ctx context.Context, segments []compose.Segment, scratchDir string, cleanup *cleanupSet) (string, error) {
	inputs := make([]string, 0, len(segments))
	for _, segment := range segments {
		absolute, err := filepath.Abs(segment.Path)
		if err != nil {
			return "", fmt.Errorf("resolve clip path: %w", err)
		}
		inputs = append(inputs, absolute)
	}

	listPath := filepath.Join(scratchDir, "concat_video.txt")
	if err := media.WriteConcatList(listPath, inputs); err != nil {
		return "", err
	}
	cleanup.add(listPath)

	videoPath := filepath.Join(scratchDir, "concat.mp4")
	cleanup.add(videoPath)
	if _, err := c.runner.Run(ctx, c.copyTimeout(), c.media.FFmpegBinary, media.ConcatArgs(listPath, videoPath)...); err != nil {
		return "", err
	}
	return videoPath, nil
}

// assembleNarration downloads the paragraph audio and merges it into one
// track. A single paragraph's audio is used as-is.
func (c *Compositor) assembleNarration(ctx context.Context, taskID int64, audio []compose.ParagraphAudio, scratchDir string, cleanup *cleanupSet) (string, error) {
	parts := make([]string, 0, len(audio))
	for i, fragment := range audio {
		partPath := filepath.Join(scratchDir, fmt.Sprintf("narration_%d.mp3", i))
		if err := c.store.Download(ctx, fragment.ObjectKey, partPath); err != nil {
			return "", services.Wrap(services.ErrTransient, "compose", "download",
				fmt.Sprintf("fetch narration %s", fragment.ObjectKey), err)
		}
		cleanup.add(partPath)
		absolute, err := filepath.Abs(partPath)
		if err != nil {
			return "", fmt.Errorf("resolve narration path: %w", err)
		}
		parts = append(parts, absolute)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}

	listPath := filepath.Join(scratchDir, "concat_audio.txt")
	if err := media.WriteConcatList(listPath, parts); err != nil {
		return "", err
	}
	cleanup.add(listPath)

	mergedPath := filepath.Join(scratchDir, "narration.mp3")
	cleanup.add(mergedPath)
	if _, err := c.runner.Run(ctx, c.copyTimeout(), c.media.FFmpegBinary, media.ConcatArgs(listPath, mergedPath)...); err != nil {
		return "", err
	}
	return mergedPath, nil
}

func (c *Compositor) measure(ctx context.Context, finalPath string) (compose.Composition, error) {
	probe, err := media.Probe(ctx, c.runner, c.media.FFprobeBinary, finalPath, c.probeTimeout())
	if err != nil {
		return compose.Composition{}, err
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return compose.Composition{}, fmt.Errorf("stat output: %w", err)
	}
	return compose.Composition{
		Path:      finalPath,
		Duration:  probe.DurationSeconds(),
		SizeBytes: info.Size(),
	}, nil
}

// uploadWithRetries attempts the upload with a fixed delay between tries.
func (c *Compositor) uploadWithRetries(ctx context.Context, key, path string) error {
	attempts := c.upload.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(c.upload.RetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.store.PutFile(ctx, key, path, "video/mp4"); err != nil {
			lastErr = err
			c.logger.Warn("upload attempt failed",
				logging.String("object_key", key),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
			if attempt < attempts {
				c.sleep(delay)
			}
			continue
		}
		return nil
	}
	return services.Wrap(services.ErrTransient, "compose", "upload",
		fmt.Sprintf("upload of %s failed after %d attempts", key, attempts), lastErr)
}

func composeFailed(step string, err error) error {
	return services.Wrap(nil, "compose", "", "composition failed: "+step, err)
}

func (c *Compositor) copyTimeout() time.Duration {
	return time.Duration(c.media.CutTimeout) * time.Second
}

func (c *Compositor) encodeTimeout() time.Duration {
	return time.Duration(c.media.EncodeTimeout) * time.Second
}

func (c *Compositor) probeTimeout() time.Duration {
	return time.Duration(c.media.ProbeTimeout) * time.Second
}

// cleanupSet removes intermediate files when the stage returns, whatever
// the outcome. Missing files are fine.
type cleanupSet struct {
	logger *slog.Logger
	paths  []string
}

func newCleanupSet(logger *slog.Logger) *cleanupSet {
	return &cleanupSet{logger: logger}
}

func (s *cleanupSet) add(path string) {
	s.paths = append(s.paths, path)
}

func (s *cleanupSet) run() {
	for _, path := range s.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove intermediate", logging.String("path", path), logging.Error(err))
		}
	}
}
