package database

// Repository identifies a logical remote target for message mirroring.
// Rows are created at setup (a default row is seeded by the migrations)
// or when a remote repository is imported, and are never deleted in
// normal operation.
type Repository struct {
	ID         int64   `db:"id"          json:"id"`
	Name       string  `db:"name"        json:"name"`
	URL        string  `db:"url"         json:"url"`
	LastSynced *string `db:"last_synced" json:"last_synced"`
	IsActive   bool    `db:"is_active"   json:"is_active"`
	CreatedAt  string  `db:"created_at"  json:"created_at"`
}

// Message is a single chat entry. Timestamp is the author-supplied send
// time as an ISO-8601 string; CreatedAt is server-assigned.
// GitCommitHash stays NULL until a push cycle that includes the message
// succeeds, and is never changed afterwards.
type Message struct {
	ID            int64   `db:"id"              json:"id"`
	RepositoryID  int64   `db:"repository_id"   json:"repository_id"`
	Content       string  `db:"content"         json:"content"`
	Timestamp     string  `db:"timestamp"       json:"timestamp"`
	Author        string  `db:"author"          json:"author"`
	URL           *string `db:"url"             json:"url,omitempty"`
	MessageType   *string `db:"message_type"    json:"message_type,omitempty"`
	ParentTitle   *string `db:"parent_title"    json:"parent_title,omitempty"`
	GitCommitHash *string `db:"git_commit_hash" json:"git_commit_hash"`
	CreatedAt     string  `db:"created_at"      json:"created_at"`
}
