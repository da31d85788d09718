// Package convert runs the external converters docmark depends on:
// LibreOffice for Word documents and a configurable PDF/A tool.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrToolMissing is returned when a converter executable cannot be found.
var ErrToolMissing = errors.New("converter executable not found")

// Tool runs external commands with a per-run timeout, retrying transient
// failures and recording latencies.
type Tool struct {
	Timeout time.Duration
	Stats   *Stats
	Log     *slog.Logger
	// Retryable classifies a failed run. Nil treats only timeouts as transient.
	Retryable func(exitCode int) bool
}

func (t *Tool) logger() *slog.Logger {
	if t.Log == nil {
		return slog.Default()
	}
	return t.Log
}

// Run executes argv, retrying up to MaxRetries times on transient failures.
func (t *Tool) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("run: empty command")
	}
	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt - 1)
			t.logger().Warn("retrying converter", "tool", argv[0], "attempt", attempt, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		err = t.once(ctx, argv)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}

func (t *Tool) once(ctx context.Context, argv []string) error {
	runCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	if t.Stats != nil {
		t.Stats.Record(argv[0], elapsed.Milliseconds())
	}

	if err == nil {
		t.logger().Debug("converter finished", "tool", argv[0], "duration_ms", elapsed.Milliseconds())
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%s: %w", argv[0], ErrToolMissing)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	msg := strings.TrimSpace(out.String())
	if runCtx.Err() != nil {
		return &RetryableError{Err: fmt.Errorf("%s timed out after %s", argv[0], t.Timeout)}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && t.Retryable != nil && t.Retryable(exitErr.ExitCode()) {
		return &RetryableError{Err: fmt.Errorf("%s exited %d: %s", argv[0], exitErr.ExitCode(), msg)}
	}
	return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
}
