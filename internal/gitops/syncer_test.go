package gitops_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/edgard/gitchat/internal/config"
	"github.com/edgard/gitchat/internal/gitops"
)

// mockExecutor returns canned results keyed by the git subcommand and
// records every invocation.
type mockExecutor struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		outputs: map[string]string{},
		errs:    map[string]error{},
	}
}

func (m *mockExecutor) Run(_ context.Context, _ string, args ...string) (string, error) {
	m.calls = append(m.calls, args)
	op := ""
	if len(args) > 0 {
		op = args[0]
	}
	if err, ok := m.errs[op]; ok {
		return "", err
	}
	return m.outputs[op], nil
}

func (m *mockExecutor) operations() []string {
	ops := make([]string, 0, len(m.calls))
	for _, call := range m.calls {
		ops = append(ops, call[0])
	}
	return ops
}

func testGitConfig() config.GitConfig {
	return config.GitConfig{
		WorkTree:       "/tmp/worktree",
		Remote:         "origin",
		Branch:         "main",
		CommandTimeout: 5 * time.Second,
	}
}

func TestPushSuccess(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	exec.outputs["status"] = " M messages/file.json\n"
	exec.outputs["rev-parse"] = "abc1234def\n"

	s := gitops.NewSyncerWithExecutor(testGitConfig(), "messages", exec, nil)

	result, err := s.Push(context.Background(), 3)
	if err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if !result.Committed {
		t.Error("expected Committed to be true")
	}
	if result.CommitHash != "abc1234def" {
		t.Errorf("expected commit hash abc1234def, got %q", result.CommitHash)
	}

	wantOps := []string{"add", "status", "commit", "rev-parse", "push"}
	gotOps := exec.operations()
	if len(gotOps) != len(wantOps) {
		t.Fatalf("expected operations %v, got %v", wantOps, gotOps)
	}
	for i, op := range wantOps {
		if gotOps[i] != op {
			t.Errorf("operation %d: expected %s, got %s", i, op, gotOps[i])
		}
	}
}

func TestPushNothingToCommit(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	exec.outputs["status"] = "  \n"

	s := gitops.NewSyncerWithExecutor(testGitConfig(), "messages", exec, nil)

	result, err := s.Push(context.Background(), 0)
	if err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if result.Committed {
		t.Error("expected Committed to be false")
	}
	if result.CommitHash != "" {
		t.Errorf("expected empty commit hash, got %q", result.CommitHash)
	}

	for _, op := range exec.operations() {
		if op == "commit" || op == "push" {
			t.Errorf("unexpected %s after empty status", op)
		}
	}
}

func TestPushErrorClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		failingOp  string
		wantErr    error
		wantNotErr error
	}{
		{
			name:       "staging failure is local",
			failingOp:  "add",
			wantErr:    gitops.ErrGitLocal,
			wantNotErr: gitops.ErrGitRemote,
		},
		{
			name:       "commit failure is local",
			failingOp:  "commit",
			wantErr:    gitops.ErrGitLocal,
			wantNotErr: gitops.ErrGitRemote,
		},
		{
			name:       "push failure is remote",
			failingOp:  "push",
			wantErr:    gitops.ErrGitRemote,
			wantNotErr: gitops.ErrGitLocal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			exec := newMockExecutor()
			exec.outputs["status"] = " M messages/file.json\n"
			exec.outputs["rev-parse"] = "abc1234def\n"
			exec.errs[tc.failingOp] = gitops.NewGitError(
				tc.failingOp, []string{tc.failingOp}, errors.New("exit status 1"), "fatal: boom")

			s := gitops.NewSyncerWithExecutor(testGitConfig(), "messages", exec, nil)

			_, err := s.Push(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected errors.Is(%v) to hold, got %v", tc.wantErr, err)
			}
			if errors.Is(err, tc.wantNotErr) {
				t.Errorf("did not expect errors.Is(%v) for %v", tc.wantNotErr, err)
			}

			var gitErr *gitops.GitError
			if !errors.As(err, &gitErr) {
				t.Fatalf("expected a *GitError in the chain, got %v", err)
			}
			if gitErr.Stderr != "fatal: boom" {
				t.Errorf("expected stderr to be preserved, got %q", gitErr.Stderr)
			}
			if !strings.Contains(err.Error(), "fatal: boom") {
				t.Errorf("expected error text to include the tool's stderr, got %q", err.Error())
			}
		})
	}
}

func TestGitErrorMessage(t *testing.T) {
	t.Parallel()

	err := gitops.NewGitError("push", []string{"push", "origin", "main"},
		errors.New("exit status 128"), "fatal: could not read Username")

	msg := err.Error()
	if !strings.Contains(msg, "git push failed") {
		t.Errorf("expected operation in message, got %q", msg)
	}
	if !strings.Contains(msg, "fatal: could not read Username") {
		t.Errorf("expected stderr in message, got %q", msg)
	}
}
