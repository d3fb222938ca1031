// Package command executes external diagnostic and fix tools addressed by an
// argument vector. Stdout, stderr and the exit code are the whole contract.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	appErrors "debugtrail/internal/errors"
)

const maxErrorSnippetLen = 200

// Result captures everything the tracker keeps from one process execution.
type Result struct {
	Command    []string      `json:"command"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	ReturnCode int           `json:"return_code"`
	Duration   time.Duration `json:"duration"`
}

// Succeeded reports whether the process exited with status zero.
func (r Result) Succeeded() bool {
	return r.ReturnCode == 0
}

// Runner executes an argument vector and returns its captured output.
//
// A non-zero exit status is not an error: the Result carries the code. An
// error means the process could not be started or was killed by ctx.
type Runner interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

type execRunner struct {
	dir string
	env []string
}

// Option configures the exec-backed runner.
type Option func(*execRunner)

// WithDir sets the working directory for spawned processes.
func WithDir(dir string) Option {
	return func(r *execRunner) {
		if trimmed := strings.TrimSpace(dir); trimmed != "" {
			r.dir = trimmed
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(kv ...string) Option {
	return func(r *execRunner) {
		r.env = append(r.env, kv...)
	}
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(opts ...Option) Runner {
	r := &execRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *execRunner) Run(ctx context.Context, argv []string) (Result, error) {
	res := Result{Command: append([]string(nil), argv...), ReturnCode: -1}
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return res, appErrors.New(appErrors.CodeCommandFailed, "empty command", nil)
	}

	//nolint:gosec // G204: the tracker intentionally runs user-supplied tools
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if r.dir != "" {
		cmd.Dir = r.dir
	}
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err == nil {
		res.ReturnCode = 0
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ReturnCode = exitErr.ExitCode()
		return res, nil
	}
	return res, classifyError(argv, err, res.Stderr)
}

func classifyError(argv []string, err error, output string) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return appErrors.New(appErrors.CodeCommandNotFound, fmt.Sprintf("%s not found", argv[0]), err)
	}
	snippet := strings.TrimSpace(output)
	if len(snippet) > maxErrorSnippetLen {
		snippet = snippet[:maxErrorSnippetLen] + "..."
	}
	msg := fmt.Sprintf("%s failed: %v", strings.Join(argv, " "), err)
	if snippet != "" {
		msg += " (output: " + snippet + ")"
	}
	return appErrors.New(appErrors.CodeCommandFailed, msg, err)
}
