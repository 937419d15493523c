package daemon

import (
	"context"
	"testing"

	"montage/internal/compose"
	"montage/internal/logging"
	"montage/internal/testsupport"
	"montage/internal/workflow"
)

// blockedSource never yields a job; Dequeue returns when the context ends.
type blockedSource struct{}

func (blockedSource) Dequeue(ctx context.Context) (compose.Job, error) {
	<-ctx.Done()
	return compose.Job{}, ctx.Err()
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	manager := workflow.NewManager(cfg, workflow.Deps{Source: blockedSource{}}, logger)
	d, err := New(cfg, manager, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestStartStop(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("daemon should have stopped")
	}
}

func TestStartTwiceFails(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestSecondInstanceIsRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	first, err := New(cfg, workflow.NewManager(cfg, workflow.Deps{Source: blockedSource{}}, logger), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, workflow.NewManager(cfg, workflow.Deps{Source: blockedSource{}}, logger), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should be refused the lock")
	}
}
