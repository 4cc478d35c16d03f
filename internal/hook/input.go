// Package hook implements guardian's side of the assistant hook protocol:
// one JSON event on stdin, an optional JSON response on stdout, exit 0 always.
package hook

import (
	"encoding/json"
	"io"
	"time"
)

// Kind identifies which lifecycle hook invoked us.
type Kind string

const (
	KindUserPromptSubmit Kind = "UserPromptSubmit"
	KindPreToolUse       Kind = "PreToolUse"
	KindPostToolUse      Kind = "PostToolUse"
	KindStop             Kind = "Stop"
	KindSessionStart     Kind = "SessionStart"
)

// Input is the event payload the host writes to stdin. Unknown fields are
// ignored so newer hosts can add fields freely.
type Input struct {
	SessionID     string         `json:"session_id"`
	CWD           string         `json:"cwd"`
	HookEventName string         `json:"hook_event_name"`
	Prompt        string         `json:"prompt"`
	ToolName      string         `json:"tool_name"`
	ToolInput     map[string]any `json:"tool_input"`
	// Source distinguishes a post-compaction resume ("compact") from a
	// plain new session on SessionStart events.
	Source string `json:"source"`
	// Timestamp is optional; hosts that omit it get the receive time.
	Timestamp time.Time `json:"timestamp"`
}

// ParseInput decodes one hook event. A malformed payload yields an error the
// caller turns into a silent no-op, never a host-visible failure.
func ParseInput(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// When returns the event time, defaulting to now for hosts that send none.
func (in *Input) When(now time.Time) time.Time {
	if in.Timestamp.IsZero() {
		return now
	}
	return in.Timestamp
}

// FilePath returns tool_input.file_path when present.
func (in *Input) FilePath() string {
	s, _ := in.ToolInput["file_path"].(string)
	return s
}

// Command returns tool_input.command when present.
func (in *Input) Command() string {
	s, _ := in.ToolInput["command"].(string)
	return s
}
