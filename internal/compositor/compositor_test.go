package compositor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"montage/internal/compose"
	"montage/internal/logging"
	"montage/internal/storage"
	"montage/internal/testsupport"
)

// fakeRunner records invocations and creates each ffmpeg output file so the
// stage can stat and upload it.
type fakeRunner struct {
	t     *testing.T
	calls [][]string
}

func (r *fakeRunner) Run(_ context.Context, _ time.Duration, binary string, args ...string) ([]byte, error) {
	if strings.Contains(binary, "ffprobe") {
		return []byte(`{"format":{"duration":"12.500","size":"2048"}}`), nil
	}
	r.calls = append(r.calls, args)
	output := args[len(args)-1]
	if err := os.WriteFile(output, []byte("media"), 0o644); err != nil {
		r.t.Fatalf("write fake output: %v", err)
	}
	return nil, nil
}

func (r *fakeRunner) encodeArgs() []string {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func newTestCompositor(t *testing.T) (*Compositor, *fakeRunner, *testsupport.MemoryStore, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	scratch := cfg.Paths.ScratchDir
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatalf("create scratch: %v", err)
	}
	runner := &fakeRunner{t: t}
	store := testsupport.NewMemoryStore()
	comp := New(store, runner, cfg.Media, cfg.Upload, logging.NewNop()).WithSleeper(func(time.Duration) {})
	return comp, runner, store, scratch
}

func seedClips(t *testing.T, scratch string, n int) []compose.Segment {
	t.Helper()
	segments := make([]compose.Segment, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(scratch, fmt.Sprintf("clip_%d.mp4", i))
		if err := os.WriteFile(path, []byte("clip"), 0o644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
		segments = append(segments, compose.Segment{ParagraphIndex: i, Path: path, Duration: 4.5, ShotID: int64(i + 1)})
	}
	return segments
}

func seedAudio(store *testsupport.MemoryStore, taskID int64, n int) []compose.ParagraphAudio {
	audio := make([]compose.ParagraphAudio, 0, n)
	for i := 0; i < n; i++ {
		key := storage.AudioKey(taskID, i)
		store.Seed(key, []byte("mp3"))
		audio = append(audio, compose.ParagraphAudio{ParagraphIndex: i, ObjectKey: key, Duration: 4.0})
	}
	return audio
}

func TestRunComposesAndUploads(t *testing.T) {
	comp, runner, store, scratch := newTestCompositor(t)
	segments := seedClips(t, scratch, 2)
	audio := seedAudio(store, 7, 2)

	composition, err := comp.Run(context.Background(), 7, segments, audio, "", scratch)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if composition.Duration != 12.5 {
		t.Fatalf("unexpected duration %v", composition.Duration)
	}
	if composition.SizeBytes == 0 {
		t.Fatal("size not measured")
	}
	if _, ok := store.Object(storage.OutputKey(7)); !ok {
		t.Fatal("final video not uploaded")
	}
	// Video concat, audio merge, final encode.
	if len(runner.calls) != 3 {
		t.Fatalf("expected 3 ffmpeg invocations, got %d", len(runner.calls))
	}
}

func TestRunSingleParagraphSkipsAudioMerge(t *testing.T) {
	comp, runner, store, scratch := newTestCompositor(t)
	segments := seedClips(t, scratch, 1)
	audio := seedAudio(store, 7, 1)

	if _, err := comp.Run(context.Background(), 7, segments, audio, "", scratch); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Video concat and final encode only.
	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 ffmpeg invocations, got %d", len(runner.calls))
	}
	encode := strings.Join(runner.encodeArgs(), " ")
	if !strings.Contains(encode, "narration_0.mp3") {
		t.Fatalf("single narration should feed the encode directly: %s", encode)
	}
}

func TestRunBurnsSubtitleWhenProvided(t *testing.T) {
	comp, runner, store, scratch := newTestCompositor(t)
	segments := seedClips(t, scratch, 1)
	audio := seedAudio(store, 7, 1)
	subtitlePath := filepath.Join(scratch, "subtitle.ass")

	if _, err := comp.Run(context.Background(), 7, segments, audio, subtitlePath, scratch); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	encode := strings.Join(runner.encodeArgs(), " ")
	if !strings.Contains(encode, "ass=") {
		t.Fatalf("subtitle filter missing from encode: %s", encode)
	}
	if !strings.Contains(encode, "+faststart") {
		t.Fatalf("faststart missing from encode: %s", encode)
	}
}

func TestRunRemovesIntermediates(t *testing.T) {
	comp, _, store, scratch := newTestCompositor(t)
	segments := seedClips(t, scratch, 2)
	audio := seedAudio(store, 7, 2)

	if _, err := comp.Run(context.Background(), 7, segments, audio, "", scratch); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, name := range []string{"concat_video.txt", "concat.mp4", "concat_audio.txt", "narration.mp3", "narration_0.mp3", "narration_1.mp3"} {
		if _, err := os.Stat(filepath.Join(scratch, name)); !os.IsNotExist(err) {
			t.Fatalf("intermediate %s should be removed", name)
		}
	}
	if _, err := os.Stat(filepath.Join(scratch, "final.mp4")); err != nil {
		t.Fatalf("final output should remain: %v", err)
	}
}

func TestRunCleansUpOnUploadFailure(t *testing.T) {
	comp, _, store, scratch := newTestCompositor(t)
	segments := seedClips(t, scratch, 2)
	audio := seedAudio(store, 7, 2)
	store.FailPuts(storage.OutputKey(7), 10)

	_, err := comp.Run(context.Background(), 7, segments, audio, "", scratch)
	if err == nil {
		t.Fatal("expected upload failure")
	}
	if !strings.Contains(err.Error(), "composition failed") {
		t.Fatalf("error should report composition failure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(scratch, "concat.mp4")); !os.IsNotExist(err) {
		t.Fatal("intermediates must be removed even on failure")
	}
}

func TestRunRetriesUpload(t *testing.T) {
	comp, _, store, scratch := newTestCompositor(t)
	var waits []time.Duration
	comp.WithSleeper(func(d time.Duration) { waits = append(waits, d) })
	segments := seedClips(t, scratch, 1)
	audio := seedAudio(store, 7, 1)
	store.FailPuts(storage.OutputKey(7), 2)

	if _, err := comp.Run(context.Background(), 7, segments, audio, "", scratch); err != nil {
		t.Fatalf("third attempt should have succeeded: %v", err)
	}
	if len(waits) != 2 {
		t.Fatalf("expected 2 pauses between attempts, got %d", len(waits))
	}
	if _, ok := store.Object(storage.OutputKey(7)); !ok {
		t.Fatal("final video not uploaded")
	}
}
