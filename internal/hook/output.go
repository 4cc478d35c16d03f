package hook

import (
	"encoding/json"
	"io"
)

// Permission decisions for PreToolUse responses.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Output is the response payload written to stdout. A nil *Output means no
// response at all; the host treats silence as "proceed".
type Output struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries the per-event response fields.
type HookSpecificOutput struct {
	HookEventName            string         `json:"hookEventName"`
	AdditionalContext        string         `json:"additionalContext,omitempty"`
	PermissionDecision       string         `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string         `json:"permissionDecisionReason,omitempty"`
	UpdatedInput             map[string]any `json:"updatedInput,omitempty"`
	SystemMessage            string         `json:"systemMessage,omitempty"`
}

// Write encodes the output as a single JSON document.
func (o *Output) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(o)
}

// additionalContext builds a SessionStart injection response.
func additionalContext(text string) *Output {
	return &Output{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:     string(KindSessionStart),
		AdditionalContext: text,
	}}
}

// deny builds a PreToolUse denial with a reason.
func deny(reason string) *Output {
	return &Output{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:            string(KindPreToolUse),
		PermissionDecision:       DecisionDeny,
		PermissionDecisionReason: reason,
	}}
}

// allowWithInput builds a PreToolUse approval that rewrites the tool input.
func allowWithInput(updated map[string]any, message string) *Output {
	return &Output{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:      string(KindPreToolUse),
		PermissionDecision: DecisionAllow,
		UpdatedInput:       updated,
		SystemMessage:      message,
	}}
}
