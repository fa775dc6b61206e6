package quotelog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrNotFound = errors.New("log entry not found")

const (
	// DefaultTailLimit applies when the caller does not ask for a limit.
	DefaultTailLimit = 50
	// MaxTailLimit caps every Tail call regardless of the requested limit.
	MaxTailLimit = 100
)

// Store is an append-only, line-oriented log of submission attempts. Each
// entry is one JSON object per line so appends never rewrite prior content;
// update and delete rewrite the whole active file. A single mutex serializes
// every operation, which also keeps the rotation check and the append that
// triggered it atomic with respect to other writers.
type Store struct {
	path      string
	backupDir string
	maxSize   int64
	logger    *slog.Logger

	mu     sync.Mutex
	lastID int64
}

// Open prepares the store at path and seeds the id counter from the highest
// id present in the active file. Archived entries are not scanned, so after
// a restart that follows a rotation the counter can restart below previously
// archived ids; ids are monotonic for the process lifetime only.
func Open(path, backupDir string, maxSize int64, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	s := &Store{path: path, backupDir: backupDir, maxSize: maxSize, logger: logger}
	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.ID > s.lastID {
			s.lastID = entry.ID
		}
	}
	return s, nil
}

// Append assigns the next id, stamps the timestamp if unset and writes the
// entry as one line. The rotation check runs first so the new line always
// lands in a file known to be under the size threshold.
func (s *Store) Append(entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rotateIfNeeded()

	s.lastID++
	entry.ID = s.lastID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encode log entry: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("append log entry: %w", err)
	}
	return entry, nil
}

// Tail returns the last limit entries, newest first. The limit is clamped to
// [0, MaxTailLimit]. A malformed line is skipped rather than failing the
// whole read.
func (s *Store) Tail(limit int) ([]Entry, error) {
	if limit < 0 {
		limit = 0
	}
	if limit > MaxTailLimit {
		limit = MaxTailLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	result := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		result = append(result, entries[i])
	}
	return result, nil
}

// Update applies the provided fields to the entry with the given id and
// rewrites the active file. Entries moved into an archive are no longer
// addressable and report ErrNotFound.
func (s *Store) Update(id int64, patch Patch) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return Entry{}, err
	}
	idx := -1
	for i := range entries {
		if entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Entry{}, ErrNotFound
	}
	if patch.Handled != nil {
		entries[idx].Handled = *patch.Handled
	}
	if patch.Note != nil {
		entries[idx].Note = *patch.Note
	}
	if err := s.rewrite(entries); err != nil {
		return Entry{}, err
	}
	return entries[idx], nil
}

// Delete removes the entry with the given id and rewrites the remaining
// entries preserving order.
func (s *Store) Delete(id int64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return Entry{}, err
	}
	idx := -1
	for i := range entries {
		if entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Entry{}, ErrNotFound
	}
	removed := entries[idx]
	entries = append(entries[:idx], entries[idx+1:]...)
	if err := s.rewrite(entries); err != nil {
		return Entry{}, err
	}
	return removed, nil
}

func (s *Store) readAll() ([]Entry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Entries carry inline attachments, so a single line can run to
	// megabytes. ReadBytes grows without a fixed token cap.
	var entries []Entry
	reader := bufio.NewReader(file)
	for {
		line, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var entry Entry
			if err := json.Unmarshal(trimmed, &entry); err != nil {
				s.logger.Warn("skipping malformed log line", "error", err)
			} else {
				entries = append(entries, entry)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read log file: %w", readErr)
		}
	}
	return entries, nil
}

func (s *Store) rewrite(entries []Entry) error {
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode log entry: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("rewrite log file: %w", err)
	}
	return nil
}
