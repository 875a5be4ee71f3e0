// Package push coordinates a full push cycle: determining which messages
// still lack a commit hash, driving the version-control bridge, and
// recording the resulting revision identifier back onto the rows. It is
// shared by the HTTP push endpoint and the scheduled auto-sync task.
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/edgard/gitchat/internal/database"
	"github.com/edgard/gitchat/internal/gitops"
)

// ErrBusy is returned when a push cycle is already in flight.
var ErrBusy = errors.New("a push cycle is already in progress")

// ErrRecordHash is returned when the commit reached the remote but
// writing the hash back onto the message rows failed. The messages are
// backed up; the next cycle retries the bookkeeping.
var ErrRecordHash = errors.New("pushed but failed to record commit hash")

// Result reports the outcome of a completed push cycle.
type Result struct {
	// Committed is false when there was nothing to commit.
	Committed bool

	// CommitHash is the revision identifier recorded on the synced rows.
	CommitHash string

	// MessagesSynced is the number of rows whose commit hash was updated.
	MessagesSynced int
}

// Service runs push cycles. Cycles are serialized: a second caller gets
// ErrBusy instead of queueing behind a possibly hung git subprocess.
type Service struct {
	store  database.Store
	syncer *gitops.Syncer
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a push Service.
func NewService(store database.Store, syncer *gitops.Syncer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:  store,
		syncer: syncer,
		logger: logger.With("component", "push"),
	}
}

// RunCycle stages, commits, and pushes the mirror, then records the commit
// hash on every message committed in the cycle and refreshes the
// last-synced timestamp of their repositories. Rows left unmarked by an
// earlier incomplete cycle are recovered: with a clean worktree their
// files are already committed, so HEAD is pushed and recorded on them.
// A failed push mutates nothing. Failure classification
// (gitops.ErrGitLocal vs gitops.ErrGitRemote) is preserved for the
// caller.
func (s *Service) RunCycle(ctx context.Context) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	cycleStart := time.Now()

	pending, err := s.store.MessagesWithoutCommitHash(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.syncer.Push(ctx, len(pending))
	if err != nil {
		return nil, err
	}

	commitHash := result.CommitHash
	if !result.Committed {
		if len(pending) == 0 {
			return &Result{Committed: false}, nil
		}
		// A clean worktree with unmarked rows means their mirror files
		// were committed by an earlier cycle whose push or hash
		// recording failed. Push HEAD again and mark them with it.
		commitHash, err = s.syncer.Resync(ctx)
		if err != nil {
			return nil, err
		}
	}

	ids := make([]int64, 0, len(pending))
	touched := map[int64]bool{}
	for _, m := range pending {
		ids = append(ids, m.ID)
		touched[m.RepositoryID] = true
	}
	if len(touched) == 0 {
		// The commit picked up mirror files without matching rows; still
		// refresh the default repository.
		touched[1] = true
	}

	if err := s.store.SetCommitHash(ctx, ids, commitHash); err != nil {
		s.logger.ErrorContext(ctx, "Pushed but failed to record commit hash",
			"hash", commitHash, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRecordHash, err)
	}
	for repoID := range touched {
		if err := s.store.TouchRepositorySynced(ctx, repoID, cycleStart); err != nil {
			s.logger.ErrorContext(ctx, "Failed to update repository last_synced",
				"repository_id", repoID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "Push cycle completed",
		"commit_hash", commitHash, "messages_synced", len(ids))
	return &Result{
		Committed:      true,
		CommitHash:     commitHash,
		MessagesSynced: len(ids),
	}, nil
}
