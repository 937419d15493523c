package subtitle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"montage/internal/compose"
	"montage/internal/logging"
	"montage/internal/storage"
)

// Builder renders the subtitle track into the job's scratch directory and
// uploads it to durable storage.
type Builder struct {
	store      storage.Client
	logger     *slog.Logger
	playWidth  int
	playHeight int
}

// NewBuilder constructs a subtitle builder targeting the given play
// resolution.
func NewBuilder(store storage.Client, logger *slog.Logger, playWidth, playHeight int) *Builder {
	return &Builder{
		store:      store,
		logger:     logging.NewComponentLogger(logger, "subtitle"),
		playWidth:  playWidth,
		playHeight: playHeight,
	}
}

// Build writes the ASS track for the job and uploads it. It returns the
// local path for the compositor's overlay step.
func (b *Builder) Build(ctx context.Context, taskID int64, scratchDir string, durations []compose.ParagraphDuration, styleKey string) (string, error) {
	content := Render(durations, styleKey, b.playWidth, b.playHeight)
	localPath := filepath.Join(scratchDir, "subtitle.ass")
	if err := os.WriteFile(localPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write subtitle track: %w", err)
	}

	key := storage.SubtitleKey(taskID)
	if err := b.store.PutBytes(ctx, key, []byte(content), "text/plain; charset=utf-8"); err != nil {
		return "", err
	}

	b.logger.Info("subtitle track built",
		logging.Int64(logging.FieldTaskID, taskID),
		logging.Int("entries", len(durations)),
		logging.String("style", StyleFor(styleKey).Name),
		logging.String("object_key", key),
	)
	return localPath, nil
}
