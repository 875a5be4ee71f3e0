package gitops

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// CommandExecutor defines an interface for executing git commands. The
// argument vector is passed as-is to the process, never through a shell.
type CommandExecutor interface {
	// Run executes git with the given arguments in dir and returns its
	// standard output. On failure the returned error is a *GitError
	// carrying the captured standard error.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor that
// delegates to the os/exec package.
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Run implements CommandExecutor.Run.
func (e *ExecExecutor) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		operation := ""
		if len(args) > 0 {
			operation = args[0]
		}
		return "", NewGitError(operation, args, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
