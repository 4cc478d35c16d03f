// Package storage provides the file-based store for per-session context records.
//
// One JSON document per session id lives under the task-contexts directory.
// Writers use write-temp-then-rename so a concurrent reader never observes a
// half-written record; a flock is held around the replace. The store also
// enforces the global retention cap: at most MaxRecords records persist across
// all sessions, oldest activity evicted first.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrNotFound = errors.New("not found")

// MaxRecords is the retention cap across all session records.
const MaxRecords = 10

// Store is a file-per-session JSON store rooted at a task-contexts directory.
type Store struct {
	dir        string
	maxRecords int
}

// New creates a store rooted at dir. The directory is created lazily on the
// first write, not here: a missing directory on read just means no records.
func New(dir string) *Store {
	return &Store{dir: dir, maxRecords: MaxRecords}
}

// NewWithRetention creates a store with a non-default retention cap.
func NewWithRetention(dir string, maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = MaxRecords
	}
	return &Store{dir: dir, maxRecords: maxRecords}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// filePath maps a session id to its record file. Session ids are opaque host
// strings; anything that could escape the contexts directory is flattened.
func (s *Store) filePath(sessionID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(sessionID)
	return filepath.Join(s.dir, safe+".json")
}

// Get reads the record for sessionID into v.
// Returns ErrNotFound when no record exists.
func (s *Store) Get(sessionID string, v any) error {
	data, err := os.ReadFile(s.filePath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read record: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return nil
}

// Put writes the record for sessionID durably (temp file, then atomic rename)
// and applies the retention cap as a side effect.
func (s *Store) Put(sessionID string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create contexts directory: %w", err)
	}

	filePath := s.filePath(sessionID)

	lock := newFileLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// The ULID suffix keeps concurrent writers from clobbering each other's
	// temp file before the rename.
	tmpPath := filePath + "." + newTempSuffix() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace record: %w", err)
	}

	s.prune()
	return nil
}

// Delete removes the record for sessionID. Deleting a missing record is not
// an error.
func (s *Store) Delete(sessionID string) error {
	if err := os.Remove(s.filePath(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Exists reports whether a record exists for sessionID.
func (s *Store) Exists(sessionID string) bool {
	_, err := os.Stat(s.filePath(sessionID))
	return err == nil
}

// List returns the session ids of all persisted records.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read contexts directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Scan iterates over all persisted records. Records that cannot be read are
// skipped, not fatal.
func (s *Store) Scan(fn func(sessionID string, data json.RawMessage) error) error {
	ids, err := s.List()
	if err != nil {
		return err
	}

	for _, id := range ids {
		data, err := os.ReadFile(s.filePath(id))
		if err != nil {
			continue
		}
		if err := fn(id, json.RawMessage(data)); err != nil {
			return err
		}
	}
	return nil
}

// Prune applies the retention cap, evicting the oldest records by last
// activity until at most the cap remains. Returns the evicted session ids.
func (s *Store) Prune() []string {
	return s.prune()
}

// recordAge is the sort key for eviction.
type recordAge struct {
	sessionID string
	activity  time.Time
}

func (s *Store) prune() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var records []recordAge
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		records = append(records, recordAge{sessionID: id, activity: s.lastActivity(entry)})
	}

	if len(records) <= s.maxRecords {
		return nil
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].activity.Before(records[j].activity)
	})

	var evicted []string
	for _, rec := range records[:len(records)-s.maxRecords] {
		if err := os.Remove(s.filePath(rec.sessionID)); err == nil {
			evicted = append(evicted, rec.sessionID)
		}
	}
	return evicted
}

// lastActivity extracts the record's own activity timestamp, falling back to
// the file mtime for records that fail to parse.
func (s *Store) lastActivity(entry os.DirEntry) time.Time {
	var mtime time.Time
	if info, err := entry.Info(); err == nil {
		mtime = info.ModTime()
	}

	data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
	if err != nil {
		return mtime
	}
	var probe struct {
		LastActivityAt time.Time `json:"last_activity_at"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.LastActivityAt.IsZero() {
		return mtime
	}
	return probe.LastActivityAt
}

// newTempSuffix returns a ULID for temp-file uniqueness.
func newTempSuffix() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
