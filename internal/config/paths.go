package config

import "path/filepath"

// ClaudeDir returns the assistant settings directory for a project.
func ClaudeDir(cwd string) string {
	return filepath.Join(cwd, ".claude")
}

// ContextsDir returns the task-contexts directory holding session records.
func ContextsDir(cwd string) string {
	return filepath.Join(cwd, ".claude", "task-contexts")
}
