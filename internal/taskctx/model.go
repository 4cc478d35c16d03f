// Package taskctx owns the per-session task-context record: what the user
// asked for, how they redirected the task, and which files the session
// touched. The record is what survives conversation compaction.
package taskctx

import "time"

// AccessType classifies a session's most significant operation on a path.
type AccessType string

const (
	AccessRead   AccessType = "read"
	AccessWrite  AccessType = "write"
	AccessUpdate AccessType = "update"
)

// rank orders access types for precedence: mutating operations supersede
// reads; write and update rank equally and the latest observed kind wins.
func (a AccessType) rank() int {
	switch a {
	case AccessWrite, AccessUpdate:
		return 1
	default:
		return 0
	}
}

// Supersedes reports whether an operation of type a replaces the recorded
// type prev for the same path.
func (a AccessType) Supersedes(prev AccessType) bool {
	return a.rank() >= prev.rank()
}

// MtimeTolerance is the slack allowed when comparing a recorded mtime with
// the on-disk one. Filesystems with coarse timestamps (FAT, some NFS) round
// mtimes, so an exact comparison would misreport our own writes as external.
const MtimeTolerance = 2 * time.Second

// Intervention is a user prompt submitted while a task was still running.
type Intervention struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// TaskRecord is one user-initiated unit of work, bounded by its start prompt
// and a stop signal.
type TaskRecord struct {
	// InitialPrompt is set once when the task starts, verbatim.
	InitialPrompt string         `json:"initial_prompt"`
	Interventions []Intervention `json:"interventions,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	// StoppedAt is set when a completion signal fires; nil means running.
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	// IsNewTask records the boundary decision made when the task started.
	IsNewTask bool `json:"is_new_task"`
}

// Stopped reports whether a completion signal has been observed.
func (t *TaskRecord) Stopped() bool {
	return t != nil && t.StoppedAt != nil
}

// FileEntry is one path in the session's file ledger.
type FileEntry struct {
	// Path is the normalized ledger key (relative to cwd when inside it).
	Path        string     `json:"path"`
	AccessType  AccessType `json:"access_type"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	// LastKnownMtime is the on-disk mtime observed right after this
	// session's own operation, in Unix nanoseconds. Zero means the stat
	// failed and externality cannot be judged for this entry.
	LastKnownMtime int64 `json:"last_known_mtime,omitempty"`
}

// ModifiedExternally reports whether the on-disk mtime is newer than the
// last tracked operation by more than the tolerance. The comparison never
// mutates the entry; externality is derived, not stored.
func (e FileEntry) ModifiedExternally(onDisk time.Time) bool {
	if e.LastKnownMtime == 0 {
		return false
	}
	known := time.Unix(0, e.LastKnownMtime)
	return onDisk.Sub(known) > MtimeTolerance
}

// SessionContext is the durable record for one session id.
type SessionContext struct {
	SessionID     string       `json:"session_id"`
	CurrentTask   *TaskRecord  `json:"current_task,omitempty"`
	ArchivedTasks []TaskRecord `json:"archived_tasks,omitempty"`
	// FileLedger maps normalized path to its entry. Keys are unique;
	// repeated accesses update in place.
	FileLedger     map[string]FileEntry `json:"file_ledger,omitempty"`
	LastActivityAt time.Time            `json:"last_activity_at"`
}

// NewSessionContext returns a fresh empty record for a session id.
func NewSessionContext(sessionID string) *SessionContext {
	return &SessionContext{
		SessionID:  sessionID,
		FileLedger: make(map[string]FileEntry),
	}
}

// Empty reports whether the record carries nothing worth re-injecting.
func (c *SessionContext) Empty() bool {
	return c.CurrentTask == nil && len(c.FileLedger) == 0
}

// touch bumps the activity timestamp used by retention pruning.
func (c *SessionContext) touch(now time.Time) {
	if now.After(c.LastActivityAt) {
		c.LastActivityAt = now
	}
}
