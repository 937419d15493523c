package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"montage/internal/compose"
	"montage/internal/compositor"
	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/notify"
	"montage/internal/progress"
	"montage/internal/segmentcut"
	"montage/internal/services"
	"montage/internal/storage"
	"montage/internal/subtitle"
	"montage/internal/tts"
	"montage/internal/voicesynth"
)

// JobSource supplies compose jobs to the worker pool. Satisfied by the Redis
// queue.
type JobSource interface {
	Dequeue(ctx context.Context) (compose.Job, error)
}

// SinkFactory scopes progress reporting to one task. Satisfied by the Redis
// tracker.
type SinkFactory interface {
	ForTask(taskID int64) progress.Sink
}

// Deps wires the manager's collaborators.
type Deps struct {
	Source     JobSource
	Sinks      SinkFactory
	Samples    tts.SampleLookup
	Synth      *voicesynth.Stage
	Cutter     *segmentcut.Cutter
	Subtitles  *subtitle.Builder
	Compositor *compositor.Compositor
	Notifier   *notify.Notifier
}

// Manager runs the composition pipeline over a bounded worker pool. Each
// worker takes whole jobs; stages within a job always run sequentially.
type Manager struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewManager constructs the pipeline manager.
func NewManager(cfg *config.Config, deps Deps, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
}

// Start launches the worker pool. Workers stop taking new jobs when ctx is
// canceled; a job already in flight runs to completion.
func (m *Manager) Start(ctx context.Context) {
	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m.logger.Info("starting workers", logging.Int("count", workers))
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func(worker int) {
			defer m.wg.Done()
			m.runWorker(ctx, worker)
		}(i)
	}
}

// Wait blocks until every worker has drained.
func (m *Manager) Wait() {
	m.wg.Wait()
	m.logger.Info("workers stopped")
}

func (m *Manager) runWorker(ctx context.Context, worker int) {
	for {
		job, err := m.deps.Source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("job intake failed", logging.Int("worker", worker), logging.Error(err))
			return
		}
		// The job context is detached so shutdown never interrupts a
		// composition mid-pipeline.
		m.Process(context.WithoutCancel(ctx), job)
	}
}

// Process runs one job through every stage. All failures are terminal for
// the job: the progress record is marked failed and the callback carries the
// error message.
func (m *Manager) Process(ctx context.Context, job compose.Job) {
	runID := uuid.NewString()
	ctx = services.WithTaskID(ctx, job.TaskID)
	ctx = services.WithRunID(ctx, runID)
	logger := m.logger.With(
		logging.Int64(logging.FieldTaskID, job.TaskID),
		logging.String(logging.FieldCorrelationID, runID),
	)
	logger.Info("job started", logging.Int("paragraphs", len(job.Paragraphs)))

	sink := m.deps.Sinks.ForTask(job.TaskID)
	scratchDir := filepath.Join(m.cfg.Paths.ScratchDir, strconv.FormatInt(job.TaskID, 10))
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		m.fail(ctx, logger, job, sink, fmt.Errorf("prepare scratch directory: %w", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			logger.Warn("failed to remove scratch directory", logging.String("path", scratchDir), logging.Error(err))
		}
	}()

	synthCtx := services.WithStage(ctx, "synthesize")
	voiceID, err := tts.ResolveVoice(synthCtx, m.deps.Samples, job.Voice)
	if err != nil {
		m.fail(ctx, logger, job, sink, err)
		return
	}

	audio, durations, err := m.deps.Synth.Run(synthCtx, job, voiceID, sink)
	if err != nil {
		m.fail(ctx, logger, job, sink, err)
		return
	}

	if err := sink.SetStep(ctx, "Cutting segments"); err != nil {
		logger.Warn("failed to record step", logging.Error(err))
	}
	segments, err := m.deps.Cutter.Run(services.WithStage(ctx, "cut"), job.TaskID, durations, scratchDir)
	if err != nil {
		m.fail(ctx, logger, job, sink, err)
		return
	}

	subtitlePath := ""
	if m.cfg.Subtitle.Enabled {
		if err := sink.SetStep(ctx, "Building subtitles"); err != nil {
			logger.Warn("failed to record step", logging.Error(err))
		}
		subtitlePath, err = m.deps.Subtitles.Build(services.WithStage(ctx, "subtitle"), job.TaskID, scratchDir, durations, m.cfg.Subtitle.Style)
		if err != nil {
			m.fail(ctx, logger, job, sink, err)
			return
		}
	}

	if err := sink.SetStep(ctx, "Compositing video"); err != nil {
		logger.Warn("failed to record step", logging.Error(err))
	}
	composition, err := m.deps.Compositor.Run(services.WithStage(ctx, "compose"), job.TaskID, segments, audio, subtitlePath, scratchDir)
	if err != nil {
		m.fail(ctx, logger, job, sink, err)
		return
	}

	outcome := notify.Outcome{
		TaskID:          job.TaskID,
		Status:          notify.StatusCompleted,
		OutputKey:       storage.OutputKey(job.TaskID),
		DurationSeconds: composition.Duration,
		FileSizeBytes:   composition.SizeBytes,
	}
	if err := m.deps.Notifier.Notify(ctx, job.CallbackURL, outcome); err != nil {
		logger.Warn("completion callback failed", logging.Error(err))
	}
	logger.Info("job completed",
		logging.Float64("duration_seconds", composition.Duration),
		logging.Int64("size_bytes", composition.SizeBytes),
	)
}

// fail records the terminal failure and fires the failure callback. The job
// is not requeued; delivery upstream is at-least-once.
func (m *Manager) fail(ctx context.Context, logger *slog.Logger, job compose.Job, sink progress.Sink, cause error) {
	message := cause.Error()
	logger.Error("job failed", logging.Error(cause))
	if err := sink.Fail(ctx, message); err != nil {
		logger.Warn("failed to record progress failure", logging.Error(err))
	}
	outcome := notify.Outcome{
		TaskID:       job.TaskID,
		Status:       notify.StatusFailed,
		ErrorMessage: message,
	}
	if err := m.deps.Notifier.Notify(ctx, job.CallbackURL, outcome); err != nil {
		logger.Warn("failure callback failed", logging.Error(err))
	}
}
