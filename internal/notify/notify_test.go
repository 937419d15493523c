package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"montage/internal/config"
	"montage/internal/logging"
)

func testCallbackConfig() config.Callback {
	return config.Callback{MaxAttempts: 3, BaseDelaySeconds: 2, RequestTimeout: 5}
}

func TestNotifyDeliversOutcome(t *testing.T) {
	var received Outcome
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode callback body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := New(testCallbackConfig(), logging.NewNop()).WithSleeper(func(time.Duration) {})
	outcome := Outcome{
		TaskID:          42,
		Status:          StatusCompleted,
		OutputKey:       "output/42/final.mp4",
		DurationSeconds: 31.5,
		FileSizeBytes:   1 << 20,
	}
	if err := notifier.Notify(context.Background(), server.URL, outcome); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if received != outcome {
		t.Fatalf("callback body mismatch: got %+v want %+v", received, outcome)
	}
}

func TestNotifyRetriesWithExponentialBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var waits []time.Duration
	notifier := New(testCallbackConfig(), logging.NewNop()).WithSleeper(func(d time.Duration) {
		waits = append(waits, d)
	})
	if err := notifier.Notify(context.Background(), server.URL, Outcome{TaskID: 1, Status: StatusFailed}); err != nil {
		t.Fatalf("final attempt should have succeeded: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("expected %d pauses, got %d", len(want), len(waits))
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("pause %d = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestNotifyGivesUpAfterFinalAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := New(testCallbackConfig(), logging.NewNop()).WithSleeper(func(time.Duration) {})
	err := notifier.Notify(context.Background(), server.URL, Outcome{TaskID: 1, Status: StatusFailed})
	if err == nil {
		t.Fatal("expected delivery failure")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls.Load())
	}
}

func TestNotifyEmptyURLIsNoop(t *testing.T) {
	notifier := New(testCallbackConfig(), logging.NewNop())
	if err := notifier.Notify(context.Background(), "", Outcome{TaskID: 1}); err != nil {
		t.Fatalf("empty callback URL should be a no-op: %v", err)
	}
}
