package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SortOrder selects the chronological ordering of a message listing.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// MessageFilter describes pagination and filtering options for listing
// messages. Zero-value fields are ignored except Limit/Offset, which the
// caller is expected to resolve to concrete values.
type MessageFilter struct {
	RepositoryIDs []int64
	MessageType   string
	Sort          SortOrder
	Limit         int
	Offset        int
}

// Store defines the interface for database operations. Methods accept
// context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a new message record and sets its ID.
	SaveMessage(ctx context.Context, message *Message) error

	// ListMessages retrieves messages matching the filter plus the total
	// count of matching rows (ignoring pagination).
	ListMessages(ctx context.Context, filter MessageFilter) ([]Message, int, error)

	// ListRepositories retrieves all repository rows.
	ListRepositories(ctx context.Context) ([]Repository, error)

	// GetRepositoryByURL retrieves a repository by its URL.
	// Returns nil, nil if not found.
	GetRepositoryByURL(ctx context.Context, url string) (*Repository, error)

	// CreateRepository inserts a new repository row and sets its ID.
	CreateRepository(ctx context.Context, repo *Repository) error

	// MessagesWithoutCommitHash retrieves messages whose mirror file has
	// not been included in a successful push yet, oldest first.
	MessagesWithoutCommitHash(ctx context.Context) ([]Message, error)

	// SetCommitHash records the commit hash on the given messages in a
	// single transaction.
	SetCommitHash(ctx context.Context, messageIDs []int64, hash string) error

	// TouchRepositorySynced updates a repository's last-synced timestamp.
	TouchRepositorySynced(ctx context.Context, repositoryID int64, syncedAt time.Time) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return errors.New("cannot save nil message")
	}
	if message.Content == "" {
		return errors.New("message must have non-empty content")
	}
	if message.Timestamp == "" {
		return errors.New("message must have a non-empty timestamp")
	}

	if message.RepositoryID == 0 {
		message.RepositoryID = 1
	}
	if message.Author == "" {
		message.Author = "Anonymous"
	}

	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO messages (repository_id, content, timestamp, author, url, message_type, parent_title)
		VALUES (:repository_id, :content, :timestamp, :author, :url, :message_type, :parent_title)`,
		message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert message",
			"repository_id", message.RepositoryID, "author", message.Author, "error", err)
		return fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted message id: %w", err)
	}
	message.ID = id

	return nil
}

func (s *sqlxStore) ListMessages(ctx context.Context, filter MessageFilter) ([]Message, int, error) {
	where := []string{}
	args := []interface{}{}

	if len(filter.RepositoryIDs) > 0 {
		where = append(where, "repository_id IN (?)")
		args = append(args, filter.RepositoryIDs)
	}
	if filter.MessageType != "" {
		where = append(where, "message_type = ?")
		args = append(args, filter.MessageType)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	// Sort direction is whitelisted here rather than interpolated from
	// caller input.
	direction := "DESC"
	if filter.Sort == SortAscending {
		direction = "ASC"
	}

	countQuery := "SELECT COUNT(*) FROM messages" + whereClause
	countQuery, countArgs, err := sqlx.In(countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	// Secondary sort on id keeps pagination stable when timestamps collide.
	listQuery := fmt.Sprintf(
		"SELECT * FROM messages%s ORDER BY timestamp %s, id %s LIMIT ? OFFSET ?",
		whereClause, direction, direction)
	listArgs := append(append([]interface{}{}, args...), filter.Limit, filter.Offset)

	listQuery, listArgs, err = sqlx.In(listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	messages := []Message{}
	if err := s.db.SelectContext(ctx, &messages, s.db.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, total, nil
}

func (s *sqlxStore) ListRepositories(ctx context.Context) ([]Repository, error) {
	repos := []Repository{}
	if err := s.db.SelectContext(ctx, &repos, "SELECT * FROM repositories ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	return repos, nil
}

func (s *sqlxStore) GetRepositoryByURL(ctx context.Context, url string) (*Repository, error) {
	var repo Repository
	err := s.db.GetContext(ctx, &repo, "SELECT * FROM repositories WHERE url = ?", url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	return &repo, nil
}

func (s *sqlxStore) CreateRepository(ctx context.Context, repo *Repository) error {
	if repo == nil {
		return errors.New("cannot create nil repository")
	}
	if repo.URL == "" {
		return errors.New("repository must have a non-empty url")
	}
	if repo.Name == "" {
		repo.Name = repo.URL
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO repositories (name, url) VALUES (?, ?)", repo.Name, repo.URL)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert repository", "url", repo.URL, "error", err)
		return fmt.Errorf("failed to insert repository: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted repository id: %w", err)
	}
	repo.ID = id
	repo.IsActive = true

	return nil
}

func (s *sqlxStore) MessagesWithoutCommitHash(ctx context.Context) ([]Message, error) {
	messages := []Message{}
	err := s.db.SelectContext(ctx, &messages,
		"SELECT * FROM messages WHERE git_commit_hash IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced messages: %w", err)
	}
	return messages, nil
}

func (s *sqlxStore) SetCommitHash(ctx context.Context, messageIDs []int64, hash string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if hash == "" {
		return errors.New("commit hash must not be empty")
	}

	query, args, err := sqlx.In(
		"UPDATE messages SET git_commit_hash = ? WHERE id IN (?)", hash, messageIDs)
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.ErrorContext(ctx, "Failed to rollback commit-hash update", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to set commit hash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit commit-hash update: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Recorded commit hash",
		"hash", hash, "message_count", len(messageIDs))
	return nil
}

func (s *sqlxStore) TouchRepositorySynced(ctx context.Context, repositoryID int64, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE repositories SET last_synced = ? WHERE id = ?",
		syncedAt.UTC().Format(time.RFC3339), repositoryID)
	if err != nil {
		return fmt.Errorf("failed to update repository last_synced: %w", err)
	}
	return nil
}
