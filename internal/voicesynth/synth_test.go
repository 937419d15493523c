package voicesynth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"montage/internal/compose"
	"montage/internal/logging"
	"montage/internal/storage"
	"montage/internal/testsupport"
	"montage/internal/tts"
)

type scriptedSynth struct {
	fragments map[string][]tts.Fragment
	failures  map[string]int
	calls     []string
}

func (s *scriptedSynth) Synthesize(_ context.Context, text, _ string) ([]tts.Fragment, error) {
	s.calls = append(s.calls, text)
	if n := s.failures[text]; n > 0 {
		s.failures[text] = n - 1
		return nil, errors.New("provider unavailable")
	}
	fragments, ok := s.fragments[text]
	if !ok {
		return nil, fmt.Errorf("no script for %q", text)
	}
	return fragments, nil
}

func testJob(texts ...string) compose.Job {
	job := compose.Job{TaskID: 42, CallbackURL: "http://callback.local/done"}
	for i, text := range texts {
		job.Paragraphs = append(job.Paragraphs, compose.Paragraph{Index: i, Text: text, ShotID: int64(100 + i)})
	}
	return job
}

func fragment(duration float64, data string) []tts.Fragment {
	return []tts.Fragment{{Data: []byte(data), Duration: duration}}
}

func TestRunSynthesizesInOrder(t *testing.T) {
	synth := &scriptedSynth{fragments: map[string][]tts.Fragment{
		"first":  fragment(4.0, "aaa"),
		"second": fragment(3.0, "bb"),
	}}
	store := testsupport.NewMemoryStore()
	sink := testsupport.NewProgressRecorder()
	stage := New(synth, store, logging.NewNop())

	audio, durations, err := stage.Run(context.Background(), testJob("first", "second"), "voice-1", sink)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(audio) != 2 || len(durations) != 2 {
		t.Fatalf("expected 2 results, got %d audio / %d durations", len(audio), len(durations))
	}
	if audio[0].ObjectKey != storage.AudioKey(42, 0) || audio[1].ObjectKey != storage.AudioKey(42, 1) {
		t.Fatalf("unexpected object keys: %q, %q", audio[0].ObjectKey, audio[1].ObjectKey)
	}
	if durations[0].Duration != 4.0 || durations[1].Duration != 3.0 {
		t.Fatalf("unexpected durations: %+v", durations)
	}
	if durations[1].ShotID != 101 {
		t.Fatalf("shot id not carried through: %+v", durations[1])
	}
	if data, ok := store.Object(storage.AudioKey(42, 0)); !ok || string(data) != "aaa" {
		t.Fatalf("merged audio not uploaded: %q %v", data, ok)
	}
	if sink.Total != 2 {
		t.Fatalf("expected init with 2 paragraphs, got %d", sink.Total)
	}
	if !sink.Completed {
		t.Fatal("expected progress marked completed")
	}
	if len(sink.Advances) != 2 || sink.Advances[0].Completed != 1 || sink.Advances[1].Completed != 2 {
		t.Fatalf("unexpected advances: %+v", sink.Advances)
	}
}

func TestRunRetriesParagraphOnce(t *testing.T) {
	synth := &scriptedSynth{
		fragments: map[string][]tts.Fragment{"flaky": fragment(2.0, "x")},
		failures:  map[string]int{"flaky": 1},
	}
	sink := testsupport.NewProgressRecorder()
	stage := New(synth, testsupport.NewMemoryStore(), logging.NewNop())

	_, _, err := stage.Run(context.Background(), testJob("flaky"), "voice-1", sink)
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if len(synth.calls) != 2 {
		t.Fatalf("expected 2 synthesis attempts, got %d", len(synth.calls))
	}
	if sink.Failed {
		t.Fatal("progress must not be failed after a recovered retry")
	}
	if !sink.Completed {
		t.Fatal("expected progress completed")
	}
}

func TestRunFailsJobAfterSecondAttempt(t *testing.T) {
	synth := &scriptedSynth{
		fragments: map[string][]tts.Fragment{
			"good": fragment(1.0, "a"),
			"bad":  fragment(1.0, "b"),
		},
		failures: map[string]int{"bad": 2},
	}
	sink := testsupport.NewProgressRecorder()
	stage := New(synth, testsupport.NewMemoryStore(), logging.NewNop())

	_, _, err := stage.Run(context.Background(), testJob("good", "bad"), "voice-1", sink)
	if err == nil {
		t.Fatal("expected job failure")
	}
	if !strings.Contains(err.Error(), "paragraph 2") {
		t.Fatalf("error should name the failing paragraph: %v", err)
	}
	if !sink.Failed {
		t.Fatal("expected progress marked failed")
	}
	if !strings.Contains(sink.FailMsg, "paragraph 2") {
		t.Fatalf("failure message should name the paragraph: %q", sink.FailMsg)
	}
	if len(synth.calls) != 3 {
		t.Fatalf("expected 3 attempts (1 good + 2 bad), got %d", len(synth.calls))
	}
}

func TestRunUploadFailureRetriesParagraph(t *testing.T) {
	synth := &scriptedSynth{fragments: map[string][]tts.Fragment{"only": fragment(2.5, "mp3")}}
	store := testsupport.NewMemoryStore()
	store.FailPuts(storage.AudioKey(42, 0), 1)
	sink := testsupport.NewProgressRecorder()
	stage := New(synth, store, logging.NewNop())

	_, _, err := stage.Run(context.Background(), testJob("only"), "voice-1", sink)
	if err != nil {
		t.Fatalf("upload retry should have recovered: %v", err)
	}
	if _, ok := store.Object(storage.AudioKey(42, 0)); !ok {
		t.Fatal("audio missing after recovered upload")
	}
}

func TestRunEstimatesShrinkWithProgress(t *testing.T) {
	synth := &scriptedSynth{fragments: map[string][]tts.Fragment{
		"p1": fragment(1.0, "a"),
		"p2": fragment(1.0, "b"),
		"p3": fragment(1.0, "c"),
	}}
	sink := testsupport.NewProgressRecorder()
	clock := time.Unix(0, 0)
	stage := New(synth, testsupport.NewMemoryStore(), logging.NewNop()).WithClock(func() time.Time {
		clock = clock.Add(2 * time.Second)
		return clock
	})

	_, _, err := stage.Run(context.Background(), testJob("p1", "p2", "p3"), "voice-1", sink)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.Advances) != 3 {
		t.Fatalf("expected 3 advances, got %d", len(sink.Advances))
	}
	for i := 1; i < len(sink.Advances); i++ {
		if sink.Advances[i].Remaining > sink.Advances[i-1].Remaining {
			t.Fatalf("estimate grew from %v to %v", sink.Advances[i-1].Remaining, sink.Advances[i].Remaining)
		}
	}
	if last := sink.Advances[len(sink.Advances)-1].Remaining; last != 0 {
		t.Fatalf("final estimate should be zero, got %v", last)
	}
}
