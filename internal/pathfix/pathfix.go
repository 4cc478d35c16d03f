// Package pathfix normalizes file paths and corrects absolute paths to
// relative ones for the assistant's file tools.
//
// Absolute paths inside the working directory cause the host's "file
// unexpectedly modified" errors with Edit/Write, and they make ledger keys
// unstable across invocations. Everything here works on forward-slash paths
// so records written on Windows and Unix agree.
package pathfix

import "strings"

// Normalize converts a file path to the canonical ledger-key form: relative
// to cwd when the path points inside it, forward slashes throughout. Paths
// outside cwd stay absolute.
func Normalize(filePath, cwd string) string {
	if filePath == "" {
		return filePath
	}

	normalized := normalizeSlashes(filePath)
	if cwd == "" {
		return normalized
	}

	normalizedCwd := normalizeSlashes(cwd)
	if isAbsoluteInside(normalized, normalizedCwd) {
		return makeRelative(normalized, normalizedCwd)
	}
	return normalized
}

// Correction describes a path fix for a tool call.
type Correction struct {
	// Path is the corrected relative path.
	Path string
	// Reason explains the correction to the assistant.
	Reason string
}

// fixableTools are the file tools whose file_path argument gets corrected.
var fixableTools = map[string]bool{
	"Read":      true,
	"Edit":      true,
	"Write":     true,
	"MultiEdit": true,
}

// ShouldFix reports whether a tool's file_path is subject to correction.
func ShouldFix(toolName string) bool {
	return fixableTools[toolName]
}

// AnalyzeAndFix returns a correction when filePath is an absolute path inside
// cwd, nil otherwise.
func AnalyzeAndFix(filePath, cwd string) *Correction {
	if filePath == "" || cwd == "" {
		return nil
	}

	normalized := normalizeSlashes(filePath)
	normalizedCwd := normalizeSlashes(cwd)
	if !isAbsoluteInside(normalized, normalizedCwd) {
		return nil
	}

	relative := makeRelative(normalized, normalizedCwd)
	return &Correction{
		Path: relative,
		Reason: "Use relative path instead of absolute path.\n" +
			"Replace: " + filePath + "\n" +
			"With: " + relative + "\n\n" +
			"Absolute paths cause 'File unexpectedly modified' errors.",
	}
}

// normalizeSlashes folds separators and Windows drive letters into the
// forward-slash form used everywhere else (C:\x -> /c/x).
func normalizeSlashes(path string) string {
	normalized := strings.ReplaceAll(path, "\\", "/")
	normalized = strings.TrimRight(normalized, "/")

	if len(normalized) >= 2 && normalized[1] == ':' {
		drive := strings.ToLower(normalized[:1])
		normalized = "/" + drive + normalized[2:]
	}
	return normalized
}

// isAbsoluteInside reports whether path is absolute and strictly inside cwd.
// A path equal to cwd itself is not a file path and is left alone.
func isAbsoluteInside(path, cwd string) bool {
	if !strings.HasPrefix(path, "/") || path == cwd {
		return false
	}
	return strings.HasPrefix(path, cwd+"/")
}

func makeRelative(path, cwd string) string {
	return strings.TrimPrefix(strings.TrimPrefix(path, cwd), "/")
}
