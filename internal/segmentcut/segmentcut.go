package segmentcut

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"montage/internal/catalog"
	"montage/internal/compose"
	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/media"
	"montage/internal/services"
	"montage/internal/storage"
)

// ShotResolver looks up a source shot by id. Satisfied by the catalog store.
type ShotResolver interface {
	ShotByID(ctx context.Context, id int64) (*catalog.Shot, error)
}

// Window is the extraction region for one segment. Loop is set when the
// source is too short and must repeat to cover the segment.
type Window struct {
	Start float64
	Loop  bool
}

// ComputeWindow centers the segment inside the source. A source no longer
// than the segment starts at zero and loops.
func ComputeWindow(sourceDuration, segmentDuration float64) Window {
	if sourceDuration <= segmentDuration {
		return Window{Start: 0, Loop: true}
	}
	return Window{Start: (sourceDuration - segmentDuration) / 2}
}

// Cutter is the segment extraction stage: for every paragraph it downloads
// the paragraph's shot, centers a window of narration length plus the
// transition margin, and stream-copies the clip out of the source.
type Cutter struct {
	shots  ShotResolver
	store  storage.Client
	runner media.Runner
	cfg    config.Media
	logger *slog.Logger
}

// New constructs the cutter stage.
func New(shots ShotResolver, store storage.Client, runner media.Runner, cfg config.Media, logger *slog.Logger) *Cutter {
	return &Cutter{
		shots:  shots,
		store:  store,
		runner: runner,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "segmentcut"),
	}
}

// Run cuts one clip per paragraph into scratchDir, in paragraph order. Any
// paragraph's failure fails the whole stage; there is no per-paragraph
// recovery here beyond the bounded subprocess retries.
func (c *Cutter) Run(ctx context.Context, taskID int64, durations []compose.ParagraphDuration, scratchDir string) ([]compose.Segment, error) {
	segments := make([]compose.Segment, 0, len(durations))
	for i, paragraph := range durations {
		segment, err := c.cutSegment(ctx, taskID, i, paragraph, scratchDir)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

func (c *Cutter) cutSegment(ctx context.Context, taskID int64, position int, paragraph compose.ParagraphDuration, scratchDir string) (compose.Segment, error) {
	if paragraph.ShotID == 0 {
		return compose.Segment{}, services.Wrap(services.ErrValidation, "cut", "",
			fmt.Sprintf("%s has no shot", compose.Position(position)), nil)
	}

	shot, err := c.shots.ShotByID(ctx, paragraph.ShotID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return compose.Segment{}, services.Wrap(services.ErrNotFound, "cut", "",
				fmt.Sprintf("shot %d for %s does not exist", paragraph.ShotID, compose.Position(position)), nil)
		}
		return compose.Segment{}, err
	}

	sourcePath := filepath.Join(scratchDir, fmt.Sprintf("source_%d%s", position, filepath.Ext(shot.ObjectKey)))
	if err := c.store.Download(ctx, shot.ObjectKey, sourcePath); err != nil {
		return compose.Segment{}, services.Wrap(services.ErrTransient, "cut", "download",
			fmt.Sprintf("fetch shot %d", shot.ID), err)
	}

	probe, err := media.Probe(ctx, c.runner, c.cfg.FFprobeBinary, sourcePath, c.probeTimeout())
	if err != nil {
		return compose.Segment{}, err
	}
	sourceDuration := probe.DurationSeconds()
	if sourceDuration <= 0 {
		return compose.Segment{}, services.Wrap(services.ErrExternalTool, "cut", "probe",
			fmt.Sprintf("shot %d reports no duration", shot.ID), nil)
	}

	segmentDuration := paragraph.Duration + c.cfg.TransitionMargin
	window := ComputeWindow(sourceDuration, segmentDuration)
	clipPath := filepath.Join(scratchDir, fmt.Sprintf("clip_%d.mp4", position))

	if err := c.cutWithRetries(ctx, taskID, position, sourcePath, clipPath, window, segmentDuration); err != nil {
		return compose.Segment{}, err
	}
	// The source download is only needed for the cut.
	if err := os.Remove(sourcePath); err != nil {
		c.logger.Warn("failed to remove downloaded source", logging.String("path", sourcePath), logging.Error(err))
	}

	c.logger.Info("segment cut",
		logging.Int64(logging.FieldTaskID, taskID),
		logging.Int(logging.FieldParagraph, position+1),
		logging.Int64("shot_id", shot.ID),
		logging.Float64("start", window.Start),
		logging.Float64("duration", segmentDuration),
		logging.Bool("looped", window.Loop),
	)

	return compose.Segment{
		ParagraphIndex: paragraph.ParagraphIndex,
		Path:           clipPath,
		Duration:       segmentDuration,
		ShotID:         paragraph.ShotID,
	}, nil
}

// cutWithRetries runs the extraction with up to cut_max_retries additional
// attempts. Every subprocess failure, timeouts included, is retried within
// the bound; the exhausted error keeps the last attempt's detail.
func (c *Cutter) cutWithRetries(ctx context.Context, taskID int64, position int, sourcePath, clipPath string, window Window, duration float64) error {
	args := media.CutArgs(sourcePath, window.Start, duration, window.Loop, clipPath)
	attempts := 1 + c.cfg.CutMaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err := c.runner.Run(ctx, c.cutTimeout(), c.cfg.FFmpegBinary, args...)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts {
			c.logger.Warn("segment cut failed, retrying",
				logging.Int64(logging.FieldTaskID, taskID),
				logging.Int(logging.FieldParagraph, position+1),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
		}
	}
	return services.Wrap(services.ErrExternalTool, "cut", "",
		fmt.Sprintf("extraction for %s failed after %d attempts", compose.Position(position), attempts), lastErr)
}

func (c *Cutter) probeTimeout() time.Duration {
	return time.Duration(c.cfg.ProbeTimeout) * time.Second
}

func (c *Cutter) cutTimeout() time.Duration {
	return time.Duration(c.cfg.CutTimeout) * time.Second
}
