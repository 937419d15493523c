package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"montage/internal/config"
	"montage/internal/daemon"
	"montage/internal/logging"
	"montage/internal/preflight"
	"montage/internal/queue"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "montaged.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	rdb := queue.NewClient(cfg.Redis)
	defer rdb.Close()

	results := preflight.RunAll(ctx, cfg, rdb)
	for _, result := range results {
		if result.Passed {
			logger.Info("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
		} else {
			logger.Error("preflight check failed", logging.String("check", result.Name), logging.String("detail", result.Detail))
		}
	}
	if !preflight.AllPassed(results) {
		log.Fatal("preflight checks failed; refusing to start")
	}

	manager, closers, err := buildPipeline(cfg, rdb, logger)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	defer closers.close(logger)

	d, err := daemon.New(cfg, manager, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("shutting down, waiting for in-flight jobs")
	d.Stop()
}
