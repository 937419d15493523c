package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sys/unix"
)

// minScratchBytes is the space floor below which composition work is
// refused. A single job can hold several source shots plus the encoded
// output at once.
const minScratchBytes = 2 << 30

// CheckBinary verifies that the tool resolves on PATH or at its configured
// absolute location.
func CheckBinary(name, command string) Result {
	if command == "" {
		return Result{Name: name, Detail: "no binary configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found)", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable. A missing directory is created first; the daemon owns
// its scratch tree.
func CheckDirectoryAccess(name, path string) Result {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least
// minBytes available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(filepath.Clean(path), &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s available, %s required", formatBytes(available), formatBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s available", formatBytes(available))}
}

// CheckRedis verifies the queue and progress backend responds to a ping.
func CheckRedis(ctx context.Context, rdb *redis.Client) Result {
	const name = "Redis"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(checkCtx).Err(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
