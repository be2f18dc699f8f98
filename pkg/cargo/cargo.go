// Package cargo runs the cargo commands a version bump needs.
package cargo

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/matzehuels/wsbump/pkg/errors"
)

// Runner executes cargo with args in dir and returns combined output.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// ExecRunner runs the cargo binary found on PATH.
func ExecRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// Tool invokes cargo.
type Tool struct {
	run Runner
	// Logger receives fallback notices. Defaults to a no-op.
	Logger func(string, ...any)
}

// New returns a Tool backed by the cargo binary.
func New() *Tool { return NewWithRunner(ExecRunner) }

// NewWithRunner returns a Tool that executes commands through run.
func NewWithRunner(run Runner) *Tool {
	return &Tool{run: run, Logger: func(string, ...any) {}}
}

// UpdateLockfile refreshes the workspace members' entries in Cargo.lock
// after their versions changed. It tries offline first so no registry index
// is touched, and retries online if cargo cannot resolve offline.
func (t *Tool) UpdateLockfile(ctx context.Context, dir string) error {
	out, err := t.run(ctx, dir, "update", "--workspace", "--offline")
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	t.Logger("offline lockfile update failed, retrying online", "dir", dir, "output", strings.TrimSpace(string(out)))

	out, err = t.run(ctx, dir, "update", "--workspace")
	if err != nil {
		return errors.Wrap(errors.ErrCodeCommand, err, "cargo update --workspace in %s: %s", dir, strings.TrimSpace(string(out)))
	}
	return nil
}
