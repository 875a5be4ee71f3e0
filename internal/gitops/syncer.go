// Package gitops implements the version-control bridge: staging, committing,
// and pushing the message mirror to a configured remote. Each step runs as
// an isolated subprocess with an explicit timeout and a fixed argument
// vector. No merge or conflict resolution is attempted; a rejected push is
// surfaced as an error, never retried automatically.
package gitops

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/gitchat/internal/config"
)

// PushResult reports the outcome of a successful push cycle.
type PushResult struct {
	// Committed is false when there was nothing to commit.
	Committed bool

	// CommitHash is the revision identifier of the created commit.
	// Empty when Committed is false.
	CommitHash string
}

// Syncer wraps the stage/commit/push sequence for the mirror directory.
type Syncer struct {
	cfg       config.GitConfig
	mirrorDir string
	executor  CommandExecutor
	logger    *slog.Logger
}

// NewSyncer creates a Syncer with the default executor.
func NewSyncer(cfg config.GitConfig, mirrorDir string, logger *slog.Logger) *Syncer {
	return NewSyncerWithExecutor(cfg, mirrorDir, NewExecExecutor(), logger)
}

// NewSyncerWithExecutor creates a Syncer with a custom executor.
func NewSyncerWithExecutor(cfg config.GitConfig, mirrorDir string, executor CommandExecutor, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Syncer{
		cfg:       cfg,
		mirrorDir: mirrorDir,
		executor:  executor,
		logger:    logger.With("component", "gitops"),
	}
}

// Push stages the mirror directory, commits pending changes, and pushes
// them to the configured remote. messageCount is used in the commit
// message. A cycle with no staged changes returns a successful result
// with Committed set to false.
//
// Staging, commit, and rev-parse failures wrap ErrGitLocal; push failures
// wrap ErrGitRemote so the caller can tell "saved locally, not yet backed
// up" from a completely failed cycle.
func (s *Syncer) Push(ctx context.Context, messageCount int) (*PushResult, error) {
	if _, err := s.run(ctx, "add", "--", s.mirrorDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGitLocal, err)
	}

	status, err := s.run(ctx, "status", "--porcelain", "--", s.mirrorDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGitLocal, err)
	}
	if strings.TrimSpace(status) == "" {
		s.logger.Info("No mirror changes to commit")
		return &PushResult{Committed: false}, nil
	}

	commitMsg := fmt.Sprintf("Add %d new messages - %s",
		messageCount, time.Now().UTC().Format(time.RFC3339))
	if _, err := s.run(ctx, "commit", "-m", commitMsg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGitLocal, err)
	}

	hashOut, err := s.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGitLocal, err)
	}
	hash := strings.TrimSpace(hashOut)

	if _, err := s.run(ctx, "push", s.cfg.Remote, s.cfg.Branch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGitRemote, err)
	}

	s.logger.Info("Pushed mirror changes",
		"commit_hash", hash, "message_count", messageCount)
	return &PushResult{Committed: true, CommitHash: hash}, nil
}

// Resync pushes the current HEAD without creating a commit and returns
// its hash. Used when rows are still unmarked but the worktree is clean:
// their mirror files were committed by an earlier cycle whose push or
// bookkeeping did not complete. Pushing an already-pushed HEAD is a
// remote no-op.
func (s *Syncer) Resync(ctx context.Context) (string, error) {
	hashOut, err := s.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGitLocal, err)
	}
	hash := strings.TrimSpace(hashOut)

	if _, err := s.run(ctx, "push", s.cfg.Remote, s.cfg.Branch); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGitRemote, err)
	}

	s.logger.Info("Resynced existing commit", "commit_hash", hash)
	return hash, nil
}

// run executes a single git command with the configured per-command
// timeout.
func (s *Syncer) run(ctx context.Context, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	s.logger.Debug("Running git command", "args", args)
	return s.executor.Run(cmdCtx, s.cfg.WorkTree, args...)
}
