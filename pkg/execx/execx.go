// Package execx wraps external command invocation behind an interface so
// converters can be tested without spawning real processes.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/parsekit/parsekit-converter/pkg/logger"
)

var (
	// ErrNotFound reports that the requested executable is not on PATH.
	ErrNotFound = errors.New("executable not found")
	// ErrTimeout reports that the command exceeded its time budget.
	ErrTimeout = errors.New("command timed out")
)

// Command describes a single external invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result holds the outcome of a completed invocation. A non-zero ExitCode is
// not an error at this level; callers decide what it means.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// LocalRunner executes commands on the local host.
type LocalRunner struct {
	logger logger.Logger
}

// NewLocalRunner creates a runner that spawns real processes.
func NewLocalRunner(log logger.Logger) *LocalRunner {
	return &LocalRunner{logger: log}
}

func (r *LocalRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("command finished",
		logger.String("command", c.Name),
		logger.Duration("elapsed", time.Since(start)),
	)

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", c.Name, ErrNotFound)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", c.Name, ErrTimeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.Bytes(),
				Stderr:   stderr.Bytes(),
			}, nil
		}
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}

	return &Result{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}
