package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Status values stored in the progress record.
const (
	StatusSynthesizing = "synthesizing"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
)

// Record mirrors the hash stored at task:progress:{taskId}. External status
// APIs poll the same record; only the pipeline writes it.
type Record struct {
	Status                    string
	CompletedParagraphs       int
	TotalParagraphs           int
	EstimatedRemainingSeconds float64
	CurrentStepLabel          string
	ErrorMessage              string
}

// Sink is the narrow progress capability handed to pipeline stages. Stages
// never see the store itself.
type Sink interface {
	Init(ctx context.Context, totalParagraphs int, stepLabel string) error
	Advance(ctx context.Context, completedParagraphs int, estimatedRemainingSeconds float64) error
	SetStep(ctx context.Context, stepLabel string) error
	Complete(ctx context.Context) error
	Fail(ctx context.Context, message string) error
}

// Key returns the progress record key for a task.
func Key(taskID int64) string {
	return fmt.Sprintf("task:progress:%d", taskID)
}

// EstimateRemaining projects the remaining synthesis time from the running
// average seconds per completed paragraph. Never negative.
func EstimateRemaining(totalParagraphs, completedParagraphs int, averageSeconds float64) float64 {
	remaining := totalParagraphs - completedParagraphs
	if remaining <= 0 || averageSeconds <= 0 {
		return 0
	}
	return float64(remaining) * averageSeconds
}

// Tracker writes progress records to Redis. Every write is a partial field
// update and refreshes the record TTL.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTracker constructs a Redis-backed tracker.
func NewTracker(rdb *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{rdb: rdb, ttl: ttl}
}

// ForTask scopes the tracker to one task's record.
func (t *Tracker) ForTask(taskID int64) Sink {
	return &taskSink{tracker: t, key: Key(taskID)}
}

// Fetch reads the current record, for status tooling. A missing or expired
// record returns (nil, nil).
func (t *Tracker) Fetch(ctx context.Context, taskID int64) (*Record, error) {
	fields, err := t.rdb.HGetAll(ctx, Key(taskID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read progress record: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	record := &Record{
		Status:           fields["status"],
		CurrentStepLabel: fields["currentStepLabel"],
		ErrorMessage:     fields["errorMessage"],
	}
	record.CompletedParagraphs, _ = strconv.Atoi(fields["completedParagraphs"])
	record.TotalParagraphs, _ = strconv.Atoi(fields["totalParagraphs"])
	record.EstimatedRemainingSeconds, _ = strconv.ParseFloat(fields["estimatedRemainingSeconds"], 64)
	return record, nil
}

type taskSink struct {
	tracker *Tracker
	key     string
}

func (s *taskSink) Init(ctx context.Context, totalParagraphs int, stepLabel string) error {
	return s.write(ctx, map[string]interface{}{
		"status":                    StatusSynthesizing,
		"completedParagraphs":       0,
		"totalParagraphs":           totalParagraphs,
		"estimatedRemainingSeconds": 0,
		"currentStepLabel":          stepLabel,
		"errorMessage":              "",
	})
}

func (s *taskSink) Advance(ctx context.Context, completedParagraphs int, estimatedRemainingSeconds float64) error {
	if estimatedRemainingSeconds < 0 {
		estimatedRemainingSeconds = 0
	}
	return s.write(ctx, map[string]interface{}{
		"completedParagraphs":       completedParagraphs,
		"estimatedRemainingSeconds": estimatedRemainingSeconds,
	})
}

func (s *taskSink) SetStep(ctx context.Context, stepLabel string) error {
	return s.write(ctx, map[string]interface{}{
		"currentStepLabel": stepLabel,
	})
}

func (s *taskSink) Complete(ctx context.Context) error {
	return s.write(ctx, map[string]interface{}{
		"status":                    StatusCompleted,
		"estimatedRemainingSeconds": 0,
	})
}

func (s *taskSink) Fail(ctx context.Context, message string) error {
	return s.write(ctx, map[string]interface{}{
		"status":       StatusFailed,
		"errorMessage": message,
	})
}

func (s *taskSink) write(ctx context.Context, fields map[string]interface{}) error {
	if err := s.tracker.rdb.HSet(ctx, s.key, fields).Err(); err != nil {
		return fmt.Errorf("write progress record: %w", err)
	}
	if err := s.tracker.rdb.Expire(ctx, s.key, s.tracker.ttl).Err(); err != nil {
		return fmt.Errorf("refresh progress ttl: %w", err)
	}
	return nil
}
