package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgard/gitchat/internal/database"
	"github.com/edgard/gitchat/internal/github"
	"github.com/edgard/gitchat/internal/gitops"
	"github.com/edgard/gitchat/internal/mirror"
	"github.com/edgard/gitchat/internal/push"
)

type sendMessageRequest struct {
	Content   string `json:"content"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		s.writeError(w, http.StatusBadRequest, "message content is required")
		return
	}
	if utf8.RuneCountInString(content) > s.cfg.Server.MaxContentLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("message content exceeds maximum length of %d characters", s.cfg.Server.MaxContentLength))
		return
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = "Anonymous"
	}

	timestamp := strings.TrimSpace(req.Timestamp)
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	} else if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
		s.writeError(w, http.StatusBadRequest, "timestamp must be a valid ISO-8601 time")
		return
	}

	// The mirror file and the row are written as one logical unit, but
	// without a two-phase commit: a crash between the two can leave an
	// orphaned file. The database stays authoritative for reads.
	filePath, err := s.mirror.Write(mirror.Entry{
		Content:   content,
		Author:    author,
		Timestamp: timestamp,
	})
	if err != nil {
		s.logger.Error("Failed to write mirror file", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	msg := &database.Message{
		Content:   content,
		Author:    author,
		Timestamp: timestamp,
	}
	if err := s.store.SaveMessage(r.Context(), msg); err != nil {
		s.logger.Error("Failed to insert message", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"message":  "Message saved successfully",
		"id":       msg.ID,
		"filepath": filePath,
	})
}

type paginationMeta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := s.cfg.Server.DefaultPageSize
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
		if limit > s.cfg.Server.MaxPageSize {
			limit = s.cfg.Server.MaxPageSize
		}
	}

	offset := 0
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	sort := database.SortDescending
	if raw := query.Get("sort"); raw != "" {
		switch strings.ToLower(raw) {
		case "asc":
			sort = database.SortAscending
		case "desc":
			sort = database.SortDescending
		default:
			s.writeError(w, http.StatusBadRequest, "sort must be asc or desc")
			return
		}
	}

	var repoIDs []int64
	for _, raw := range query["repository_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			s.writeError(w, http.StatusBadRequest, "repository_id must be a positive integer")
			return
		}
		repoIDs = append(repoIDs, id)
	}

	messages, total, err := s.store.ListMessages(r.Context(), database.MessageFilter{
		RepositoryIDs: repoIDs,
		MessageType:   query.Get("type"),
		Sort:          sort,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		s.logger.Error("Failed to list messages", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"pagination": paginationMeta{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(messages) < total,
		},
	})
}

func (s *Server) handleRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.store.ListRepositories(r.Context())
	if err != nil {
		s.logger.Error("Failed to list repositories", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get repositories")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"repositories": repos})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	result, err := s.pusher.RunCycle(r.Context())
	if err != nil {
		s.logger.Error("Push cycle failed", "error", err)
		switch {
		case errors.Is(err, push.ErrBusy):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, gitops.ErrGitRemote):
			s.writeError(w, http.StatusBadGateway,
				"messages are saved locally but the push to the remote failed: "+err.Error())
		case errors.Is(err, push.ErrRecordHash):
			s.writeError(w, http.StatusInternalServerError,
				"messages were pushed but recording the commit hash failed; the next push retries: "+err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, "failed to push messages: "+err.Error())
		}
		return
	}

	if !result.Committed {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"message": "No new messages to push",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"message":         "Messages successfully pushed",
		"commit_hash":     result.CommitHash,
		"messages_synced": result.MessagesSynced,
	})
}

type importRepositoryRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleImportRepository(w http.ResponseWriter, r *http.Request) {
	var req importRepositoryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	owner, repoName, err := github.SplitRepoURL(req.URL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	repo, err := s.store.GetRepositoryByURL(ctx, req.URL)
	if err != nil {
		s.logger.Error("Failed to look up repository", "url", req.URL, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to look up repository")
		return
	}
	if repo == nil {
		repo = &database.Repository{
			Name: owner + "/" + repoName,
			URL:  req.URL,
		}
		if err := s.store.CreateRepository(ctx, repo); err != nil {
			s.logger.Error("Failed to create repository", "url", req.URL, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to create repository")
			return
		}
	}

	imported, err := s.github.FetchRepositoryMessages(ctx, owner, repoName)
	if err != nil {
		s.logger.Error("Failed to fetch remote messages", "url", req.URL, "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to fetch messages from remote: "+err.Error())
		return
	}

	saved := 0
	for _, im := range imported {
		content := strings.TrimSpace(im.Content)
		if content == "" {
			continue
		}

		url := im.URL
		msgType := im.MessageType
		parentTitle := im.ParentTitle
		msg := &database.Message{
			RepositoryID: repo.ID,
			Content:      content,
			Author:       im.Author,
			Timestamp:    im.Timestamp,
			URL:          &url,
			MessageType:  &msgType,
			ParentTitle:  &parentTitle,
		}
		if err := s.store.SaveMessage(ctx, msg); err != nil {
			s.logger.Error("Failed to save imported message", "url", im.URL, "error", err)
			continue
		}

		if _, err := s.mirror.Write(mirror.Entry{
			Content:     content,
			Author:      msg.Author,
			Timestamp:   msg.Timestamp,
			URL:         msg.URL,
			MessageType: msg.MessageType,
			ParentTitle: msg.ParentTitle,
		}); err != nil {
			s.logger.Error("Failed to mirror imported message", "url", im.URL, "error", err)
		}
		saved++
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "success",
		"message":           fmt.Sprintf("Imported %d messages from %s/%s", saved, owner, repoName),
		"repository_id":     repo.ID,
		"messages_imported": saved,
	})
}
