package encoder

import (
	"bytes"
	"context"
	"io"
	"os/exec"
)

// ExecResult holds the outcome of a single tool invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// Runner executes one external command.
type Runner interface {
	Run(ctx context.Context, name string, args []string) ExecResult
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args []string) ExecResult

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args []string) ExecResult {
	return f(ctx, name, args)
}

// ExecRunner runs commands with os/exec. Stderr is always captured for
// classification; when Tee is set it is also copied there in real time.
type ExecRunner struct {
	Tee io.Writer
}

// Run executes name with args and waits for it to exit.
func (r ExecRunner) Run(ctx context.Context, name string, args []string) ExecResult {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderrBuf bytes.Buffer
	if r.Tee != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, r.Tee)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
