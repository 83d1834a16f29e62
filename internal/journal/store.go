// Package journal persists an append-only audit trail of engine output.
//
// Every lifecycle transition, adaptation, and breakthrough is written as one
// JSON object per line (JSONL) to a per-session file. The trail survives
// engine restarts and is what offline analytics read, so entries are never
// rewritten once appended.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// journalExt is the file extension for per-session journal files.
const journalExt = ".jsonl"

// Store provides file-based journal storage with serialized appends.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store rooted at the given directory. The directory is
// created lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Append persists one entry to the session's journal file. If the entry ID
// is empty, a unique ID is generated. If the timestamp is zero, the current
// time is used. Writes are serialized via a mutex and use O_APPEND.
func (s *Store) Append(entry Entry) error {
	if entry.SessionID == "" {
		return fmt.Errorf("journal: entry SessionID field is required")
	}
	if !ValidateEntryType(entry.Type) {
		return fmt.Errorf("journal: unknown entry type %q", entry.Type)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("journal: create directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal: marshal entry: %w", err)
	}
	data = append(data, '\n')

	return s.atomicAppend(s.pathFor(entry.SessionID), data)
}

// Read returns all entries recorded for a session, in append order. A
// session with no journal yields nil, not an error.
func (s *Store) Read(sessionID string) ([]Entry, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("journal: sessionID is required")
	}

	f, err := os.Open(s.pathFor(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			// Skip malformed lines rather than failing entirely
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan: %w", err)
	}

	return entries, nil
}

// Sessions lists the session IDs that have a journal file.
func (s *Store) Sessions() ([]string, error) {
	names, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: read directory: %w", err)
	}

	var ids []string
	for _, n := range names {
		if n.IsDir() || filepath.Ext(n.Name()) != journalExt {
			continue
		}
		ids = append(ids, n.Name()[:len(n.Name())-len(journalExt)])
	}
	return ids, nil
}

func (s *Store) pathFor(sessionID string) string {
	return filepath.Join(s.dir, sessionID+journalExt)
}

// atomicAppend appends data to a file under a mutex to serialize writes.
// Each JSONL line is small enough that O_APPEND provides atomicity
// guarantees on POSIX systems (writes under PIPE_BUF are atomic).
func (s *Store) atomicAppend(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open for append: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("journal: append: %w", err)
	}

	return f.Close()
}
