package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"montage/internal/config"
	"montage/internal/logging"
)

// Statuses reported to the callback endpoint.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Outcome is the JSON body posted to the job's callback URL.
type Outcome struct {
	TaskID          int64   `json:"taskId"`
	Status          string  `json:"status"`
	OutputKey       string  `json:"outputKey,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	FileSizeBytes   int64   `json:"fileSizeBytes,omitempty"`
	ErrorMessage    string  `json:"errorMessage,omitempty"`
}

// Sleeper pauses between delivery attempts. Tests inject a no-op.
type Sleeper func(time.Duration)

// Notifier delivers completion callbacks. Delivery is best effort: failures
// after the final attempt are logged, never escalated to the caller.
type Notifier struct {
	client      *http.Client
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
}

// New constructs a notifier from the callback config.
func New(cfg config.Callback, logger *slog.Logger) *Notifier {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Notifier{
		client:      &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second},
		logger:      logging.NewComponentLogger(logger, "notify"),
		maxAttempts: maxAttempts,
		baseDelay:   time.Duration(cfg.BaseDelaySeconds) * time.Second,
		sleep:       time.Sleep,
	}
}

// WithSleeper injects the inter-attempt pause for tests.
func (n *Notifier) WithSleeper(sleep Sleeper) *Notifier {
	if sleep != nil {
		n.sleep = sleep
	}
	return n
}

// Notify posts the outcome to callbackURL, retrying with exponential backoff
// from the base delay. An empty URL is a no-op. The error return reports the
// final delivery state for logging only; pipeline flow ignores it.
func (n *Notifier) Notify(ctx context.Context, callbackURL string, outcome Outcome) error {
	if callbackURL == "" {
		return nil
	}

	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode callback body: %w", err)
	}

	delay := n.baseDelay
	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		if err := n.post(ctx, callbackURL, body); err != nil {
			lastErr = err
			n.logger.Warn("callback delivery failed",
				logging.Int64(logging.FieldTaskID, outcome.TaskID),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
			if attempt < n.maxAttempts {
				n.sleep(delay)
				delay *= 2
			}
			continue
		}
		n.logger.Info("callback delivered",
			logging.Int64(logging.FieldTaskID, outcome.TaskID),
			logging.String("status", outcome.Status),
			logging.Int("attempt", attempt),
		)
		return nil
	}

	n.logger.Error("callback abandoned after final attempt",
		logging.Int64(logging.FieldTaskID, outcome.TaskID),
		logging.Int("attempts", n.maxAttempts),
		logging.Error(lastErr),
	)
	return fmt.Errorf("callback to %s failed after %d attempts: %w", callbackURL, n.maxAttempts, lastErr)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback endpoint returned %s", resp.Status)
	}
	return nil
}
