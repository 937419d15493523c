package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"montage/internal/compose"
	"montage/internal/config"
	"montage/internal/logging"
)

// Queue is the Redis list carrying compose jobs. Producers push JSON job
// payloads; the daemon pops them with a blocking read so shutdown stays
// responsive.
type Queue struct {
	rdb    *redis.Client
	key    string
	logger *slog.Logger
}

// NewClient builds the shared Redis client from config.
func NewClient(cfg config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New constructs the queue on the configured list key.
func New(rdb *redis.Client, cfg config.Redis, logger *slog.Logger) *Queue {
	return &Queue{
		rdb:    rdb,
		key:    cfg.JobQueue,
		logger: logging.NewComponentLogger(logger, "queue"),
	}
}

// Enqueue pushes a job onto the list. Used by the operator CLI and by the
// upstream API.
func (q *Queue) Enqueue(ctx context.Context, job compose.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	q.logger.Info("job enqueued",
		logging.Int64(logging.FieldTaskID, job.TaskID),
		logging.Int("paragraphs", len(job.Paragraphs)),
	)
	return nil
}

// Dequeue blocks until a job is available or the context is canceled. The
// blocking read uses a short timeout so cancellation is observed between
// polls; a poison payload is logged and skipped.
func (q *Queue) Dequeue(ctx context.Context) (compose.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return compose.Job{}, err
		}
		result, err := q.rdb.BRPop(ctx, time.Second, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return compose.Job{}, ctx.Err()
			}
			return compose.Job{}, fmt.Errorf("dequeue job: %w", err)
		}
		// BRPop returns [key, value].
		if len(result) != 2 {
			continue
		}
		job, err := compose.ParseJob([]byte(result[1]))
		if err != nil {
			q.logger.Error("discarding malformed job payload", logging.Error(err))
			continue
		}
		return job, nil
	}
}

// Depth reports the number of queued jobs.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("read queue depth: %w", err)
	}
	return depth, nil
}
