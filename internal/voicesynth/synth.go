package voicesynth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"montage/internal/compose"
	"montage/internal/logging"
	"montage/internal/progress"
	"montage/internal/services"
	"montage/internal/storage"
	"montage/internal/tts"
)

// paragraphState tracks the per-paragraph retry machine:
// pending -> succeeded | retrying -> succeeded | failed.
type paragraphState int

const (
	statePending paragraphState = iota
	stateRetrying
	stateSucceeded
	stateFailed
)

// Stage synthesizes narration for every paragraph in index order, uploads
// the merged audio, and reports per-paragraph progress.
type Stage struct {
	synth  tts.Synthesizer
	store  storage.Client
	logger *slog.Logger
	now    func() time.Time
}

// New constructs the voice synthesis stage.
func New(synth tts.Synthesizer, store storage.Client, logger *slog.Logger) *Stage {
	return &Stage{
		synth:  synth,
		store:  store,
		logger: logging.NewComponentLogger(logger, "voicesynth"),
		now:    time.Now,
	}
}

// WithClock injects a time source for tests.
func (s *Stage) WithClock(now func() time.Time) *Stage {
	if now != nil {
		s.now = now
	}
	return s
}

// Run processes the job's paragraphs sequentially. One paragraph's failure
// is retried exactly once before it fails the whole job; already-completed
// paragraphs are never redone. After each paragraph the progress record
// advances with a remaining-time estimate from the running average.
func (s *Stage) Run(ctx context.Context, job compose.Job, voiceID string, sink progress.Sink) ([]compose.ParagraphAudio, []compose.ParagraphDuration, error) {
	total := len(job.Paragraphs)
	if err := sink.Init(ctx, total, "Synthesizing narration"); err != nil {
		return nil, nil, err
	}

	audio := make([]compose.ParagraphAudio, 0, total)
	durations := make([]compose.ParagraphDuration, 0, total)
	elapsedTotal := 0.0

	for i, paragraph := range job.Paragraphs {
		started := s.now()
		result, state, err := s.synthesizeParagraph(ctx, job.TaskID, paragraph, voiceID)
		if state == stateFailed {
			message := fmt.Sprintf("narration failed for %s", compose.Position(i))
			fatal := services.Wrap(services.ErrTransient, "synthesize", "", message, err)
			if failErr := sink.Fail(ctx, message); failErr != nil {
				s.logger.Warn("failed to record progress failure", logging.Error(failErr))
			}
			return nil, nil, fatal
		}
		elapsedTotal += s.now().Sub(started).Seconds()

		audio = append(audio, result)
		durations = append(durations, compose.ParagraphDuration{
			ParagraphIndex: paragraph.Index,
			ShotID:         paragraph.ShotID,
			Text:           paragraph.Text,
			Duration:       result.Duration,
		})

		completed := i + 1
		average := elapsedTotal / float64(completed)
		estimate := progress.EstimateRemaining(total, completed, average)
		if err := sink.Advance(ctx, completed, estimate); err != nil {
			s.logger.Warn("failed to advance progress", logging.Error(err))
		}

		s.logger.Info("paragraph synthesized",
			logging.Int64(logging.FieldTaskID, job.TaskID),
			logging.Int(logging.FieldParagraph, i+1),
			logging.Float64("duration_seconds", result.Duration),
			logging.Bool("retried", state == stateRetrying),
		)
	}

	if err := sink.Complete(ctx); err != nil {
		s.logger.Warn("failed to mark progress completed", logging.Error(err))
	}
	return audio, durations, nil
}

// synthesizeParagraph runs the per-paragraph state machine. The returned
// state is stateSucceeded on the first attempt, stateRetrying when the
// retry recovered, and stateFailed when both attempts were spent.
func (s *Stage) synthesizeParagraph(ctx context.Context, taskID int64, paragraph compose.Paragraph, voiceID string) (compose.ParagraphAudio, paragraphState, error) {
	state := statePending
	var lastErr error
	for {
		result, err := s.attempt(ctx, taskID, paragraph, voiceID)
		if err == nil {
			if state == statePending {
				state = stateSucceeded
			}
			return result, state, nil
		}
		lastErr = err
		if state == statePending {
			state = stateRetrying
			s.logger.Warn("paragraph synthesis failed, retrying once",
				logging.Int64(logging.FieldTaskID, taskID),
				logging.Int(logging.FieldParagraph, paragraph.Index+1),
				logging.Error(err),
			)
			continue
		}
		return compose.ParagraphAudio{}, stateFailed, lastErr
	}
}

func (s *Stage) attempt(ctx context.Context, taskID int64, paragraph compose.Paragraph, voiceID string) (compose.ParagraphAudio, error) {
	fragments, err := s.synth.Synthesize(ctx, paragraph.Text, voiceID)
	if err != nil {
		return compose.ParagraphAudio{}, err
	}
	merged, duration, err := tts.Merge(fragments)
	if err != nil {
		return compose.ParagraphAudio{}, err
	}

	key := storage.AudioKey(taskID, paragraph.Index)
	if err := s.store.PutBytes(ctx, key, merged, "audio/mpeg"); err != nil {
		return compose.ParagraphAudio{}, err
	}

	return compose.ParagraphAudio{
		ParagraphIndex: paragraph.Index,
		ObjectKey:      key,
		Duration:       duration,
	}, nil
}
