package testsupport

import (
	"context"
	"sync"

	"montage/internal/progress"
)

// ProgressRecorder is a progress.Sink that records every update for
// assertions.
type ProgressRecorder struct {
	mu        sync.Mutex
	Total     int
	Steps     []string
	Advances  []ProgressAdvance
	Completed bool
	Failed    bool
	FailMsg   string
}

// ProgressAdvance captures one Advance call.
type ProgressAdvance struct {
	Completed int
	Remaining float64
}

// NewProgressRecorder builds an empty recorder.
func NewProgressRecorder() *ProgressRecorder {
	return &ProgressRecorder{}
}

func (r *ProgressRecorder) Init(_ context.Context, totalParagraphs int, stepLabel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Total = totalParagraphs
	r.Steps = append(r.Steps, stepLabel)
	return nil
}

func (r *ProgressRecorder) Advance(_ context.Context, completedParagraphs int, estimatedRemainingSeconds float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Advances = append(r.Advances, ProgressAdvance{
		Completed: completedParagraphs,
		Remaining: estimatedRemainingSeconds,
	})
	return nil
}

func (r *ProgressRecorder) SetStep(_ context.Context, stepLabel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, stepLabel)
	return nil
}

func (r *ProgressRecorder) Complete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Completed = true
	return nil
}

func (r *ProgressRecorder) Fail(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = true
	r.FailMsg = message
	return nil
}

var _ progress.Sink = (*ProgressRecorder)(nil)
