package taskctx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guardian-coach/guardian/internal/logging"
	"github.com/guardian-coach/guardian/internal/pathfix"
	"github.com/guardian-coach/guardian/internal/storage"
)

// PromptKind is the boundary decision for an incoming prompt.
type PromptKind int

const (
	// PromptNewTask means the prompt started a fresh task.
	PromptNewTask PromptKind = iota
	// PromptIntervention means the prompt redirected the running task.
	PromptIntervention
)

// Service applies event updates to session context records.
//
// Every method is total: storage failures degrade to in-memory state and a
// warning log, they never propagate to the hook boundary.
type Service struct {
	store         *storage.Store
	cwd           string
	archivedLimit int
}

// NewService creates a service over the given store for a working directory.
func NewService(store *storage.Store, cwd string, archivedLimit int) *Service {
	return &Service{store: store, cwd: cwd, archivedLimit: archivedLimit}
}

// Store exposes the underlying record store.
func (s *Service) Store() *storage.Store {
	return s.store
}

// Load returns the record for sessionID, never nil. A missing record means a
// lazily-created fresh one; a corrupt record degrades to fresh with a warning.
func (s *Service) Load(sessionID string) *SessionContext {
	sc := NewSessionContext(sessionID)
	err := s.store.Get(sessionID, sc)
	switch {
	case err == nil:
		// A record written by an older build may lack the ledger map.
		if sc.FileLedger == nil {
			sc.FileLedger = make(map[string]FileEntry)
		}
		sc.SessionID = sessionID
	case errors.Is(err, storage.ErrNotFound):
		// First event for this session id.
	default:
		logging.Warn().Err(err).Str("session_id", sessionID).Msg("context record unreadable, starting fresh")
		sc = NewSessionContext(sessionID)
	}
	return sc
}

// Save persists the record, best effort. The in-memory record stays valid for
// the rest of the invocation even when the write fails.
func (s *Service) Save(sc *SessionContext) {
	if err := s.store.Put(sc.SessionID, sc); err != nil {
		logging.Warn().Err(err).Str("session_id", sc.SessionID).Msg("failed to persist context record")
	}
}

// OnPrompt records a submitted prompt and decides the task boundary: a prompt
// after a stop signal (or with no task at all) starts a new task; a prompt
// while the task is running is an intervention. No text heuristics; the
// presence of a recorded stop signal is the only boundary criterion.
func (s *Service) OnPrompt(sessionID, text string, now time.Time) PromptKind {
	sc := s.Load(sessionID)
	kind := s.applyPrompt(sc, text, now)
	sc.touch(now)
	s.Save(sc)
	return kind
}

func (s *Service) applyPrompt(sc *SessionContext, text string, now time.Time) PromptKind {
	if sc.CurrentTask != nil && !sc.CurrentTask.Stopped() {
		sc.CurrentTask.Interventions = append(sc.CurrentTask.Interventions, Intervention{
			Timestamp: now,
			Text:      text,
		})
		return PromptIntervention
	}

	if sc.CurrentTask != nil {
		s.archiveTask(sc)
	}

	sc.CurrentTask = &TaskRecord{
		InitialPrompt: text,
		StartedAt:     now,
		IsNewTask:     true,
	}
	return PromptNewTask
}

// OnStop records a completion signal. Idempotent: a second stop with no
// intervening prompt leaves the record unchanged.
func (s *Service) OnStop(sessionID string, now time.Time) {
	sc := s.Load(sessionID)
	if sc.CurrentTask == nil || sc.CurrentTask.Stopped() {
		return
	}

	// Clock skew guard: never record a stop earlier than the start.
	if now.Before(sc.CurrentTask.StartedAt) {
		now = sc.CurrentTask.StartedAt
	}
	sc.CurrentTask.StoppedAt = &now
	sc.touch(now)
	s.Save(sc)
}

// RecordAccess updates the file ledger for one observed tool operation.
// The tracker's only job is the entry itself: access type, seen times, and
// the refreshed mtime. Whether a later change was external is derived at
// render time by comparing against that mtime, never decided here.
func (s *Service) RecordAccess(sessionID, filePath string, op AccessType, now time.Time) {
	key := pathfix.Normalize(filePath, s.cwd)
	if key == "" {
		return
	}

	sc := s.Load(sessionID)

	entry, exists := sc.FileLedger[key]
	if !exists {
		entry = FileEntry{
			Path:        key,
			AccessType:  op,
			FirstSeenAt: now,
		}
	} else if op.Supersedes(entry.AccessType) {
		entry.AccessType = op
	}
	entry.LastSeenAt = now

	// The mtime observed immediately after our own operation is the anchor
	// for the render-time externality comparison.
	if mtime, ok := s.statMtime(key); ok {
		entry.LastKnownMtime = mtime.UnixNano()
	}

	sc.FileLedger[key] = entry
	sc.touch(now)
	s.Save(sc)
}

// ArchiveCurrentTask moves the current task into archived_tasks.
func (s *Service) ArchiveCurrentTask(sc *SessionContext) {
	s.archiveTask(sc)
	sc.CurrentTask = nil
}

func (s *Service) archiveTask(sc *SessionContext) {
	if sc.CurrentTask == nil {
		return
	}
	sc.ArchivedTasks = append(sc.ArchivedTasks, *sc.CurrentTask)
	if s.archivedLimit > 0 && len(sc.ArchivedTasks) > s.archivedLimit {
		sc.ArchivedTasks = sc.ArchivedTasks[len(sc.ArchivedTasks)-s.archivedLimit:]
	}
}

// Reset replaces the record for sessionID with a fresh one. Used when a
// session starts over without compaction.
func (s *Service) Reset(sessionID string, now time.Time) {
	sc := NewSessionContext(sessionID)
	sc.touch(now)
	s.Save(sc)
}

// StatMtime resolves a ledger key against the working directory and returns
// the current on-disk mtime.
func (s *Service) StatMtime(key string) (time.Time, bool) {
	return s.statMtime(key)
}

func (s *Service) statMtime(key string) (time.Time, bool) {
	info, err := os.Stat(s.resolve(key))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// resolve maps a ledger key back to a filesystem path.
func (s *Service) resolve(key string) string {
	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return filepath.FromSlash(key)
	}
	return filepath.Join(s.cwd, filepath.FromSlash(key))
}
