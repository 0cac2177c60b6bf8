// Package semantic delegates inconclusive matching decisions to an
// external reasoning process. The delegate receives a prompt on stdin
// and must answer with constrained JSON; anything else — malformed
// output, out-of-bounds indices, non-zero exit, timeout — collapses to
// "no opinion". The package fails closed: it can decline to match but
// can never force a wrong merge.
package semantic

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one prompt against the external process and returns
// its raw stdout.
type Runner interface {
	Run(ctx context.Context, prompt string) ([]byte, error)
}

// CLIRunner invokes a reasoning CLI (such as claude) in print mode with
// the prompt on standard input. Context cancellation kills the process.
type CLIRunner struct {
	Command string
	Model   string
}

// Available reports whether the configured command is on PATH.
func (r *CLIRunner) Available() error {
	if _, err := exec.LookPath(r.Command); err != nil {
		return fmt.Errorf("semantic: command %q not found: %w", r.Command, err)
	}
	return nil
}

// Run executes the command with args for non-interactive print mode.
func (r *CLIRunner) Run(ctx context.Context, prompt string) ([]byte, error) {
	args := []string{"-p"}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("semantic: %w", ctx.Err())
		}
		return nil, fmt.Errorf("semantic: %s exited: %w (stderr: %s)",
			r.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
