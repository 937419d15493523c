package preflight

import (
	"context"

	"github.com/go-redis/redis/v8"

	"montage/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config. The Redis
// client may be nil when only filesystem and binary checks are wanted.
func RunAll(ctx context.Context, cfg *config.Config, rdb *redis.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBinary("FFmpeg", cfg.Media.FFmpegBinary),
		CheckBinary("FFprobe", cfg.Media.FFprobeBinary),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, minScratchBytes),
	}
	if rdb != nil {
		results = append(results, CheckRedis(ctx, rdb))
	}
	return results
}

// AllPassed reports whether every check succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
