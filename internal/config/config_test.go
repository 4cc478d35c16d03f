package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(t.TempDir())

	assert.Equal(t, DefaultRetention, cfg.Retention)
	assert.True(t, cfg.CoachingEnabled)
	assert.True(t, cfg.KeepArchivedTasks)
	assert.Equal(t, DefaultRecentFileLimit, cfg.RecentFileLimit)
	assert.NotEmpty(t, cfg.IgnorePatterns)
}

func TestLoadProjectFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{
		// project overrides
		"retention": 5,
		"coaching": false,
		"keep_archived_tasks": false,
		"ignore_patterns": ["out/**"],
		"unknown_future_field": {"ok": true}
	}`
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".claude"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".claude", "guardian.jsonc"), []byte(content), 0644))

	cfg := Load(tmpDir)

	assert.Equal(t, 5, cfg.Retention)
	assert.False(t, cfg.CoachingEnabled)
	assert.False(t, cfg.KeepArchivedTasks)
	assert.Equal(t, []string{"out/**"}, cfg.IgnorePatterns)
	// Untouched fields keep defaults.
	assert.Equal(t, DefaultArchivedTaskLimit, cfg.ArchivedTaskLimit)
}

func TestLoadMalformedFileIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".claude"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".claude", "guardian.json"), []byte("{not json"), 0644))

	cfg := Load(tmpDir)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GUARDIAN_COACHING", "0")
	t.Setenv("GUARDIAN_RETENTION", "3")
	t.Setenv("GUARDIAN_LOG_LEVEL", "DEBUG")

	cfg := Load(t.TempDir())

	assert.False(t, cfg.CoachingEnabled)
	assert.Equal(t, 3, cfg.Retention)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".claude"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".claude", "guardian.json"), []byte(`{"coaching": true}`), 0644))
	t.Setenv("GUARDIAN_COACHING", "false")

	cfg := Load(tmpDir)
	assert.False(t, cfg.CoachingEnabled)
}

func TestContextsDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/work", ".claude", "task-contexts"), ContextsDir("/work"))
}
