// Package auditlog appends domain events to a JSONL file, one JSON object
// per line. The log is append-only and serves as the file backend's
// durable audit trail; it is never read back by the core.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry is one line of the audit log.
type Entry struct {
	EventID   string      `json:"eventId"`
	EventType string      `json:"eventType"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Log appends entries to a single JSONL file.
type Log struct {
	path string
}

// New creates a log writing to path, creating the parent directory when
// needed.
func New(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &Log{path: path}, nil
}

// Append writes one event to the log. Local disk I/O is assumed reliable;
// errors propagate without retry.
func (l *Log) Append(eventType string, data interface{}) error {
	entry := Entry{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}
