package taskctx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardian-coach/guardian/internal/storage"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	cwd := t.TempDir()
	store := storage.New(filepath.Join(cwd, ".claude", "task-contexts"))
	return NewService(store, cwd, 20), cwd
}

func TestOnPrompt_StartsNewTask(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	kind := svc.OnPrompt("sess", "Add logging to server.py", now)
	assert.Equal(t, PromptNewTask, kind)

	sc := svc.Load("sess")
	require.NotNil(t, sc.CurrentTask)
	assert.Equal(t, "Add logging to server.py", sc.CurrentTask.InitialPrompt)
	assert.True(t, sc.CurrentTask.IsNewTask)
	assert.False(t, sc.CurrentTask.Stopped())
	assert.Empty(t, sc.ArchivedTasks)
}

func TestOnPrompt_WhileRunningIsIntervention(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	svc.OnPrompt("sess", "first", now)
	kind := svc.OnPrompt("sess", "actually use JSON logs", now.Add(time.Minute))
	assert.Equal(t, PromptIntervention, kind)

	sc := svc.Load("sess")
	// The initial prompt is immutable and archived_tasks does not grow.
	assert.Equal(t, "first", sc.CurrentTask.InitialPrompt)
	assert.Empty(t, sc.ArchivedTasks)
	require.Len(t, sc.CurrentTask.Interventions, 1)
	assert.Equal(t, "actually use JSON logs", sc.CurrentTask.Interventions[0].Text)
}

func TestOnPrompt_AfterStopStartsNewTaskAndArchives(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	svc.OnPrompt("sess", "first task", now)
	svc.OnStop("sess", now.Add(time.Minute))
	kind := svc.OnPrompt("sess", "Now add tests", now.Add(2*time.Minute))
	assert.Equal(t, PromptNewTask, kind)

	sc := svc.Load("sess")
	require.Len(t, sc.ArchivedTasks, 1)
	assert.Equal(t, "first task", sc.ArchivedTasks[0].InitialPrompt)
	assert.True(t, sc.ArchivedTasks[0].Stopped())
	assert.Equal(t, "Now add tests", sc.CurrentTask.InitialPrompt)
	assert.False(t, sc.CurrentTask.Stopped())
}

func TestOnStop_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	svc.OnPrompt("sess", "task", now)
	svc.OnStop("sess", now.Add(time.Minute))

	first := svc.Load("sess").CurrentTask.StoppedAt
	require.NotNil(t, first)

	svc.OnStop("sess", now.Add(2*time.Minute))
	second := svc.Load("sess").CurrentTask.StoppedAt
	assert.True(t, first.Equal(*second), "second stop must not move stopped_at")
}

func TestOnStop_WithoutTaskIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	svc.OnStop("sess", time.Now())

	sc := svc.Load("sess")
	assert.Nil(t, sc.CurrentTask)
}

func TestOnStop_ClockSkewClamped(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Now()

	svc.OnPrompt("sess", "task", start)
	svc.OnStop("sess", start.Add(-time.Hour))

	sc := svc.Load("sess")
	require.True(t, sc.CurrentTask.Stopped())
	assert.False(t, sc.CurrentTask.StoppedAt.Before(sc.CurrentTask.StartedAt))
}

func TestRecordAccess_Precedence(t *testing.T) {
	svc, cwd := newTestService(t)
	now := time.Now()
	path := filepath.Join(cwd, "server.py")
	require.NoError(t, os.WriteFile(path, []byte("print()"), 0644))

	// read then write -> write
	svc.RecordAccess("sess", path, AccessRead, now)
	svc.RecordAccess("sess", path, AccessWrite, now.Add(time.Second))
	sc := svc.Load("sess")
	require.Contains(t, sc.FileLedger, "server.py")
	assert.Equal(t, AccessWrite, sc.FileLedger["server.py"].AccessType)

	// write then read -> write still dominates
	svc.RecordAccess("sess", path, AccessRead, now.Add(2*time.Second))
	sc = svc.Load("sess")
	assert.Equal(t, AccessWrite, sc.FileLedger["server.py"].AccessType)

	// write then update -> latest mutating kind wins
	svc.RecordAccess("sess", path, AccessUpdate, now.Add(3*time.Second))
	sc = svc.Load("sess")
	assert.Equal(t, AccessUpdate, sc.FileLedger["server.py"].AccessType)
}

func TestRecordAccess_NormalizesKeyAndNoDuplicates(t *testing.T) {
	svc, cwd := newTestService(t)
	now := time.Now()
	require.NoError(t, os.MkdirAll(filepath.Join(cwd, "src"), 0755))
	abs := filepath.Join(cwd, "src", "main.go")
	require.NoError(t, os.WriteFile(abs, []byte("package main"), 0644))

	svc.RecordAccess("sess", abs, AccessRead, now)
	svc.RecordAccess("sess", "src/main.go", AccessUpdate, now.Add(time.Second))

	sc := svc.Load("sess")
	require.Len(t, sc.FileLedger, 1, "absolute and relative forms must share one ledger key")
	entry := sc.FileLedger["src/main.go"]
	assert.Equal(t, AccessUpdate, entry.AccessType)
	assert.True(t, entry.LastSeenAt.After(entry.FirstSeenAt))
	assert.NotZero(t, entry.LastKnownMtime)
}

func TestRecordAccess_MissingFileStillTracked(t *testing.T) {
	svc, _ := newTestService(t)
	svc.RecordAccess("sess", "ghost.txt", AccessRead, time.Now())

	sc := svc.Load("sess")
	require.Contains(t, sc.FileLedger, "ghost.txt")
	assert.Zero(t, sc.FileLedger["ghost.txt"].LastKnownMtime)
}

func TestLoadSave_RoundTrip(t *testing.T) {
	svc, cwd := newTestService(t)
	now := time.Now().Truncate(time.Millisecond)
	path := filepath.Join(cwd, "a.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	svc.OnPrompt("sess", "do the thing", now)
	svc.OnPrompt("sess", "no, the other thing", now.Add(time.Minute))
	svc.RecordAccess("sess", path, AccessWrite, now.Add(2*time.Minute))
	svc.OnStop("sess", now.Add(3*time.Minute))

	sc := svc.Load("sess")
	assert.Equal(t, "sess", sc.SessionID)
	assert.Equal(t, "do the thing", sc.CurrentTask.InitialPrompt)
	require.Len(t, sc.CurrentTask.Interventions, 1)
	assert.Equal(t, "no, the other thing", sc.CurrentTask.Interventions[0].Text)
	assert.True(t, sc.CurrentTask.Stopped())
	assert.Contains(t, sc.FileLedger, "a.txt")
	assert.False(t, sc.LastActivityAt.IsZero())
}

func TestLoad_CorruptRecordDegradesToFresh(t *testing.T) {
	svc, cwd := newTestService(t)
	dir := filepath.Join(cwd, ".claude", "task-contexts")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sess.json"), []byte("{broken"), 0644))

	sc := svc.Load("sess")
	assert.Equal(t, "sess", sc.SessionID)
	assert.Nil(t, sc.CurrentTask)
	assert.Empty(t, sc.FileLedger)
}

func TestLoad_ForwardTolerantUnknownFields(t *testing.T) {
	svc, cwd := newTestService(t)
	dir := filepath.Join(cwd, ".claude", "task-contexts")
	require.NoError(t, os.MkdirAll(dir, 0755))
	doc := `{
		"session_id": "sess",
		"current_task": {"initial_prompt": "hi", "started_at": "2026-01-02T15:04:05Z"},
		"some_future_field": [1, 2, 3]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sess.json"), []byte(doc), 0644))

	sc := svc.Load("sess")
	require.NotNil(t, sc.CurrentTask)
	assert.Equal(t, "hi", sc.CurrentTask.InitialPrompt)
}

func TestArchivedTasksBounded(t *testing.T) {
	cwd := t.TempDir()
	store := storage.New(filepath.Join(cwd, ".claude", "task-contexts"))
	svc := NewService(store, cwd, 3)
	now := time.Now()

	for i := 0; i < 6; i++ {
		svc.OnPrompt("sess", "task", now.Add(time.Duration(2*i)*time.Minute))
		svc.OnStop("sess", now.Add(time.Duration(2*i+1)*time.Minute))
	}

	sc := svc.Load("sess")
	assert.LessOrEqual(t, len(sc.ArchivedTasks), 3)
}

func TestAccessTypeSupersedes(t *testing.T) {
	assert.True(t, AccessWrite.Supersedes(AccessRead))
	assert.True(t, AccessUpdate.Supersedes(AccessRead))
	assert.True(t, AccessUpdate.Supersedes(AccessWrite))
	assert.True(t, AccessWrite.Supersedes(AccessUpdate))
	assert.True(t, AccessRead.Supersedes(AccessRead))
	assert.False(t, AccessRead.Supersedes(AccessWrite))
}
