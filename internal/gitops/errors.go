package gitops

import (
	"errors"
	"fmt"
)

// Sentinel errors used with errors.Is to classify a failed push cycle.
// Local failures mean the mirror may be committed but nothing changed
// remotely; remote failures mean the commit exists locally but did not
// reach the hosting service.
var (
	// ErrGitLocal indicates a staging, commit, or inspection command failed.
	ErrGitLocal = errors.New("local git operation failed")

	// ErrGitRemote indicates the push to the remote failed (authentication,
	// network, or a rejected non-fast-forward update).
	ErrGitRemote = errors.New("remote git operation failed")
)

// GitError represents an error from a single git command. It captures the
// command details, underlying error, and captured standard error so the
// caller can surface the tool's own message.
type GitError struct {
	Operation string
	Args      []string
	Err       error
	Stderr    string
}

// Error implements the error interface with a detailed message.
func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *GitError) Unwrap() error {
	return e.Err
}

// NewGitError creates a new GitError with the given parameters.
func NewGitError(operation string, args []string, err error, stderr string) *GitError {
	return &GitError{
		Operation: operation,
		Args:      args,
		Err:       err,
		Stderr:    stderr,
	}
}
