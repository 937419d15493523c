package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/workflow"
)

// Daemon coordinates the pipeline workers and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	manager  *workflow.Manager
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon around an initialized workflow manager.
func New(cfg *config.Config, manager *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || manager == nil || logger == nil {
		return nil, errors.New("daemon requires config, manager, and logger")
	}
	lockPath := cfg.Paths.LockFile
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the workers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.manager.Start(runCtx)
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels intake, waits for in-flight jobs to finish, and releases the
// lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Running reports whether the daemon holds the lock and has live workers.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
