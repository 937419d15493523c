package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"montage/internal/catalog"
	"montage/internal/compositor"
	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/media"
	"montage/internal/notify"
	"montage/internal/progress"
	"montage/internal/queue"
	"montage/internal/segmentcut"
	"montage/internal/storage"
	"montage/internal/subtitle"
	"montage/internal/tts"
	"montage/internal/voicesynth"
	"montage/internal/workflow"
)

type closerSet struct {
	catalog *catalog.Store
}

func (c closerSet) close(logger *slog.Logger) {
	if c.catalog != nil {
		if err := c.catalog.Close(); err != nil {
			logger.Warn("failed to close catalog", logging.Error(err))
		}
	}
}

// buildPipeline wires every stage of the composition pipeline onto the
// shared clients.
func buildPipeline(cfg *config.Config, rdb *redis.Client, logger *slog.Logger) (*workflow.Manager, closerSet, error) {
	catalogStore, err := catalog.Open(cfg.Paths.CatalogDB)
	if err != nil {
		return nil, closerSet{}, fmt.Errorf("open catalog: %w", err)
	}
	closers := closerSet{catalog: catalogStore}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, closers, fmt.Errorf("connect object storage: %w", err)
	}

	synth, err := tts.NewClient(cfg.TTS)
	if err != nil {
		return nil, closers, fmt.Errorf("build synthesis client: %w", err)
	}

	runner := media.CommandRunner{}
	tracker := progress.NewTracker(rdb, time.Duration(cfg.Redis.ProgressTTLSeconds)*time.Second)

	deps := workflow.Deps{
		Source:     queue.New(rdb, cfg.Redis, logger),
		Sinks:      tracker,
		Samples:    catalogStore,
		Synth:      voicesynth.New(synth, store, logger),
		Cutter:     segmentcut.New(catalogStore, store, runner, cfg.Media, logger),
		Subtitles:  subtitle.NewBuilder(store, logger, cfg.Media.TargetWidth, cfg.Media.TargetHeight),
		Compositor: compositor.New(store, runner, cfg.Media, cfg.Upload, logger),
		Notifier:   notify.New(cfg.Callback, logger),
	}
	return workflow.NewManager(cfg, deps, logger), closers, nil
}
