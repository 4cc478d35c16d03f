// Package config provides configuration loading and path management.
//
// Guardian reads an optional project-level guardian.json / guardian.jsonc
// under .claude/, then applies environment overrides. Configuration is read
// once at process start and never mutated afterwards; handlers receive the
// resulting values explicitly rather than consulting globals mid-flight.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// Defaults.
const (
	DefaultRetention         = 10
	DefaultArchivedTaskLimit = 20
	DefaultRecentFileLimit   = 15
)

// DefaultIgnorePatterns are doublestar globs excluded from the renderer's
// recently-modified scan. Matches what the hooks historically skipped.
var DefaultIgnorePatterns = []string{
	".*/**",
	"**/.*/**",
	"node_modules/**",
	"**/node_modules/**",
	"__pycache__/**",
	"**/__pycache__/**",
	"venv/**",
	".venv/**",
	"vendor/**",
	"dist/**",
	"build/**",
	"target/**",
}

// Config holds guardian settings.
type Config struct {
	// Retention is the cap on persisted session records across all sessions.
	Retention int
	// CoachingEnabled toggles the pre-tool-use coaching collaborator.
	// Has no effect on context capture.
	CoachingEnabled bool
	// KeepArchivedTasks retains archived tasks across post-compaction renders
	// instead of discarding them once rendered.
	KeepArchivedTasks bool
	// ArchivedTaskLimit bounds archived_tasks; oldest evicted first.
	ArchivedTaskLimit int
	// RecentFileLimit bounds the renderer's workdir scan.
	RecentFileLimit int
	// IgnorePatterns are doublestar globs excluded from the workdir scan.
	IgnorePatterns []string
	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string
}

// fileConfig mirrors Config with optional fields so absent keys keep defaults.
// Unknown fields are ignored, keeping old binaries tolerant of new configs.
type fileConfig struct {
	Retention         *int     `json:"retention"`
	Coaching          *bool    `json:"coaching"`
	KeepArchivedTasks *bool    `json:"keep_archived_tasks"`
	ArchivedTaskLimit *int     `json:"archived_task_limit"`
	RecentFileLimit   *int     `json:"recent_file_limit"`
	IgnorePatterns    []string `json:"ignore_patterns"`
	LogLevel          *string  `json:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Retention:         DefaultRetention,
		CoachingEnabled:   true,
		KeepArchivedTasks: true,
		ArchivedTaskLimit: DefaultArchivedTaskLimit,
		RecentFileLimit:   DefaultRecentFileLimit,
		IgnorePatterns:    DefaultIgnorePatterns,
		LogLevel:          "WARN",
	}
}

// Load builds the configuration for a working directory (priority order):
// 1. Built-in defaults
// 2. <cwd>/.claude/guardian.json or guardian.jsonc
// 3. Environment variables (GUARDIAN_COACHING, GUARDIAN_RETENTION, GUARDIAN_LOG_LEVEL)
// A malformed config file is skipped, never fatal.
func Load(cwd string) Config {
	cfg := Default()

	if cwd != "" {
		claudeDir := filepath.Join(cwd, ".claude")
		for _, name := range []string{"guardian.json", "guardian.jsonc"} {
			if loadFile(filepath.Join(claudeDir, name), &cfg) {
				break
			}
		}
	}

	applyEnvOverrides(&cfg)
	return cfg
}

// loadFile merges one config file into cfg. Reports whether a file was loaded.
func loadFile(path string, cfg *Config) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	data = jsonc.ToJSON(data)

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return false
	}

	if fc.Retention != nil && *fc.Retention > 0 {
		cfg.Retention = *fc.Retention
	}
	if fc.Coaching != nil {
		cfg.CoachingEnabled = *fc.Coaching
	}
	if fc.KeepArchivedTasks != nil {
		cfg.KeepArchivedTasks = *fc.KeepArchivedTasks
	}
	if fc.ArchivedTaskLimit != nil && *fc.ArchivedTaskLimit >= 0 {
		cfg.ArchivedTaskLimit = *fc.ArchivedTaskLimit
	}
	if fc.RecentFileLimit != nil && *fc.RecentFileLimit >= 0 {
		cfg.RecentFileLimit = *fc.RecentFileLimit
	}
	if fc.IgnorePatterns != nil {
		cfg.IgnorePatterns = fc.IgnorePatterns
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	return true
}

// applyEnvOverrides applies environment variables (highest priority).
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("GUARDIAN_COACHING"); ok {
		cfg.CoachingEnabled = parseBool(v, cfg.CoachingEnabled)
	}
	if v, ok := os.LookupEnv("GUARDIAN_RETENTION"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Retention = n
		}
	}
	if v, ok := os.LookupEnv("GUARDIAN_LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = v
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
