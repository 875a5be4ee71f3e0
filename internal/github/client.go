// Package github implements the GitHub REST API client used by the
// repository import feature. It fetches issues and their comments from a
// remote repository so they can be stored as messages.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// APIError represents an error response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %s (status: %d)", e.Message, e.StatusCode)
}

// ImportedMessage is a remote issue or comment normalized to the message
// shape stored by the application.
type ImportedMessage struct {
	Content     string
	Author      string
	Timestamp   string
	URL         string
	MessageType string
	ParentTitle string
}

// Client talks to the GitHub REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// NewClient creates a GitHub API client. The token is optional for public
// repositories but required to avoid aggressive rate limits.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		logger:     logger.With("component", "github"),
	}
}

type issue struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	CreatedAt   string `json:"created_at"`
	HTMLURL     string `json:"html_url"`
	CommentsURL string `json:"comments_url"`
	Comments    int    `json:"comments"`
	User        struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type comment struct {
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	HTMLURL   string `json:"html_url"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

// FetchRepositoryMessages retrieves all issues of owner/repo and their
// comments, newest first, as importable messages. Pull requests are
// skipped; the issues endpoint lists them too.
func (c *Client) FetchRepositoryMessages(ctx context.Context, owner, repo string) ([]ImportedMessage, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues?state=all&sort=updated&direction=desc&per_page=100", owner, repo)

	var issues []issue
	if err := c.doRequest(ctx, path, &issues); err != nil {
		return nil, fmt.Errorf("failed to fetch issues for %s/%s: %w", owner, repo, err)
	}

	messages := []ImportedMessage{}
	for _, iss := range issues {
		if iss.PullRequest != nil {
			continue
		}

		messages = append(messages, ImportedMessage{
			Content:     iss.Body,
			Author:      iss.User.Login,
			Timestamp:   iss.CreatedAt,
			URL:         iss.HTMLURL,
			MessageType: "issue",
			ParentTitle: iss.Title,
		})

		if iss.Comments == 0 {
			continue
		}

		var comments []comment
		if err := c.doRequestURL(ctx, iss.CommentsURL, &comments); err != nil {
			c.logger.WarnContext(ctx, "Failed to fetch issue comments, skipping",
				"issue", iss.Number, "error", err)
			continue
		}
		for _, cm := range comments {
			messages = append(messages, ImportedMessage{
				Content:     cm.Body,
				Author:      cm.User.Login,
				Timestamp:   cm.CreatedAt,
				URL:         cm.HTMLURL,
				MessageType: "comment",
				ParentTitle: iss.Title,
			})
		}
	}

	c.logger.InfoContext(ctx, "Fetched repository messages",
		"owner", owner, "repo", repo, "count", len(messages))
	return messages, nil
}

// doRequest issues a GET against a path below the configured base URL.
func (c *Client) doRequest(ctx context.Context, path string, response interface{}) error {
	return c.doRequestURL(ctx, c.baseURL+path, response)
}

// doRequestURL issues a GET against an absolute URL (the API returns
// absolute comment URLs) with proper headers and error handling.
func (c *Client) doRequestURL(ctx context.Context, url string, response interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = "unexpected response"
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// SplitRepoURL extracts owner and repo from a repository URL or an
// owner/repo identifier.
func SplitRepoURL(url string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(strings.Trim(strings.TrimSpace(url), "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid repository URL %q: expected owner/repo", url)
	}
	owner = parts[len(parts)-2]
	repo = parts[len(parts)-1]
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: expected owner/repo", url)
	}
	return owner, repo, nil
}
