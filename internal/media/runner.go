package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"montage/internal/services"
)

// Runner executes an external command with a per-call ceiling and captures
// combined stdout+stderr. Probe, cut, concat, and encode all go through the
// same implementation so timeout and termination semantics stay identical.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, binary string, args ...string) ([]byte, error)
}

// CommandRunner is the production Runner backed by os/exec.
type CommandRunner struct{}

// Run executes the command. On timeout the process is forcibly terminated
// and the error carries the timeout marker; any non-zero exit carries the
// external-tool marker with the captured output for diagnostics.
func (CommandRunner) Run(ctx context.Context, timeout time.Duration, binary string, args ...string) ([]byte, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, binary, args...)
	// Do not wait on lingering pipe readers once the context fires.
	cmd.WaitDelay = 5 * time.Second

	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return output, services.Wrap(services.ErrTimeout, "media", binary, fmt.Sprintf("terminated after %s", timeout), err)
		}
		return output, services.Wrap(services.ErrExternalTool, "media", binary, Summarize(output), err)
	}
	return output, nil
}

// Summarize trims subprocess output for inclusion in error messages.
func Summarize(output []byte) string {
	text := strings.TrimSpace(string(output))
	const limit = 2048
	if len(text) > limit {
		text = text[len(text)-limit:]
	}
	return text
}
