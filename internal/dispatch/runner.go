package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/nate007-quant/mission-control/internal/domain"
)

// maxOutputChars bounds the command output kept for logging.
const maxOutputChars = 4000

// waitDelay bounds how long Run waits for output after the command is killed.
const waitDelay = 2 * time.Second

// Runner executes the dispatch command.
type Runner interface {
	Run(ctx context.Context, command string) (output string, err error)
}

// ShellRunner runs commands through "sh -c" with a timeout.
type ShellRunner struct {
	Timeout time.Duration
}

// Run executes command and returns its combined output, trimmed to the
// newest maxOutputChars characters.
func (r ShellRunner) Run(ctx context.Context, command string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Children of the shell may hold the output pipe after it is killed.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	output := domain.TailChars(out.String(), maxOutputChars)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("dispatch command timed out after %s", r.Timeout)
	}
	if err != nil {
		return output, fmt.Errorf("dispatch command failed: %w", err)
	}
	return output, nil
}
