package github_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edgard/gitchat/internal/github"
)

func TestFetchRepositoryMessages(t *testing.T) {
	t.Parallel()

	var gotAuth, gotAccept string
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("GET /repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[
			{
				"number": 7,
				"title": "Crash on start",
				"body": "it crashes",
				"created_at": "2025-01-05T10:00:00Z",
				"html_url": "https://github.com/acme/widgets/issues/7",
				"comments_url": %q,
				"comments": 2,
				"user": {"login": "alice"}
			},
			{
				"number": 8,
				"title": "Fix crash",
				"body": "patch",
				"created_at": "2025-01-06T10:00:00Z",
				"html_url": "https://github.com/acme/widgets/pull/8",
				"comments_url": %q,
				"comments": 0,
				"user": {"login": "bob"},
				"pull_request": {}
			}
		]`, srv.URL+"/repos/acme/widgets/issues/7/comments", srv.URL+"/repos/acme/widgets/issues/8/comments")
	})
	mux.HandleFunc("GET /repos/acme/widgets/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{
				"body": "same here",
				"created_at": "2025-01-05T11:00:00Z",
				"html_url": "https://github.com/acme/widgets/issues/7#issuecomment-1",
				"user": {"login": "carol"}
			},
			{
				"body": "fixed in main",
				"created_at": "2025-01-05T12:00:00Z",
				"html_url": "https://github.com/acme/widgets/issues/7#issuecomment-2",
				"user": {"login": "alice"}
			}
		]`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(srv.URL, "secret-token", nil)
	messages, err := client.FetchRepositoryMessages(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("FetchRepositoryMessages: %v", err)
	}

	if gotAuth != "token secret-token" {
		t.Errorf("expected token auth header, got %q", gotAuth)
	}
	if gotAccept != "application/vnd.github.v3+json" {
		t.Errorf("unexpected accept header %q", gotAccept)
	}

	// One issue and two comments; the pull request is skipped.
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	issue := messages[0]
	if issue.MessageType != "issue" || issue.Author != "alice" || issue.Content != "it crashes" {
		t.Errorf("unexpected issue message %+v", issue)
	}
	if issue.ParentTitle != "Crash on start" {
		t.Errorf("unexpected parent title %q", issue.ParentTitle)
	}

	for _, cm := range messages[1:] {
		if cm.MessageType != "comment" {
			t.Errorf("expected comment type, got %+v", cm)
		}
		if cm.ParentTitle != "Crash on start" {
			t.Errorf("expected comment to carry the issue title, got %q", cm.ParentTitle)
		}
	}
}

func TestFetchRepositoryMessagesNoToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(srv.URL, "", nil)
	messages, err := client.FetchRepositoryMessages(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("FetchRepositoryMessages: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages, got %d", len(messages))
	}
}

func TestFetchRepositoryMessagesAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(srv.URL, "", nil)
	_, err := client.FetchRepositoryMessages(context.Background(), "acme", "missing")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var apiErr *github.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Not Found" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
}

func TestSplitRepoURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"https url", "https://github.com/acme/widgets", "acme", "widgets", false},
		{"trailing slash", "https://github.com/acme/widgets/", "acme", "widgets", false},
		{"dot git suffix", "https://github.com/acme/widgets.git", "acme", "widgets", false},
		{"dot git then trailing slash", "https://github.com/acme/widgets.git/", "acme", "widgets", false},
		{"bare identifier", "acme/widgets", "acme", "widgets", false},
		{"single segment", "widgets", "", "", true},
		{"empty", "", "", "", true},
		{"empty segments", "//", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner, repo, err := github.SplitRepoURL(tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitRepoURL(%q): %v", tc.url, err)
			}
			if owner != tc.wantOwner || repo != tc.wantRepo {
				t.Errorf("SplitRepoURL(%q) = %q, %q; want %q, %q",
					tc.url, owner, repo, tc.wantOwner, tc.wantRepo)
			}
		})
	}
}
