// Package mirror maintains the per-message JSON file mirror: a directory
// of timestamped files kept alongside the relational rows as a portable,
// versioned copy. The database remains the system of record for reads;
// the mirror is an append-only projection consumed by the version-control
// bridge.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Entry is the persisted JSON document for a single message.
type Entry struct {
	Content     string  `json:"content"`
	Author      string  `json:"author"`
	Timestamp   string  `json:"timestamp"`
	URL         *string `json:"url,omitempty"`
	MessageType *string `json:"message_type,omitempty"`
	ParentTitle *string `json:"parent_title,omitempty"`
}

// Writer writes message entries into a mirror directory.
type Writer struct {
	dir string
}

// NewWriter creates the mirror directory if needed and returns a Writer.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("mirror directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write persists the entry as an indented JSON file and returns the path
// of the created file. Filenames start with the timestamp with colons
// replaced, so a lexicographic sort of the directory is a chronological
// sort of the messages. An existing file is never replaced: entries that
// share a timestamp and author get a numeric suffix.
func (w *Writer) Write(entry Entry) (string, error) {
	if entry.Content == "" {
		return "", fmt.Errorf("mirror entry must have non-empty content")
	}
	if entry.Timestamp == "" {
		return "", fmt.Errorf("mirror entry must have a non-empty timestamp")
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode mirror entry: %w", err)
	}

	base := fmt.Sprintf("%s_%s",
		strings.ReplaceAll(entry.Timestamp, ":", "-"),
		sanitizeAuthor(entry.Author))

	path := filepath.Join(w.dir, base+".json")
	for n := 1; ; n++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			path = filepath.Join(w.dir, fmt.Sprintf("%s_%d.json", base, n))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create mirror file: %w", err)
		}

		_, writeErr := f.Write(data)
		if closeErr := f.Close(); writeErr == nil {
			writeErr = closeErr
		}
		if writeErr != nil {
			return "", fmt.Errorf("failed to write mirror file: %w", writeErr)
		}
		return path, nil
	}
}

// sanitizeAuthor keeps filenames portable: anything outside
// [A-Za-z0-9._-] becomes an underscore.
func sanitizeAuthor(author string) string {
	if author == "" {
		return "Anonymous"
	}
	var b strings.Builder
	for _, r := range author {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
