package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/guardian-coach/guardian/internal/hook"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Hook entry points invoked by the assistant",
	Long: `Hook entry points, one per lifecycle event. Each reads a single JSON
event from stdin, may write a JSON response to stdout, and always exits 0:
guardian never fails a host event.

Example assistant hook configuration:

  "UserPromptSubmit": "guardian hook user-prompt-submit"
  "PreToolUse":       "guardian hook pre-tool-use"
  "PostToolUse":      "guardian hook post-tool-use"
  "Stop":             "guardian hook stop"
  "SessionStart":     "guardian hook session-start"`,
}

// hookRun builds a cobra Run for one hook kind.
func hookRun(kind hook.Kind) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		hook.Execute(kind, os.Stdin, os.Stdout)
	}
}

var hookPromptCmd = &cobra.Command{
	Use:   "user-prompt-submit",
	Short: "Record a submitted prompt (new task or intervention)",
	Run:   hookRun(hook.KindUserPromptSubmit),
}

var hookPreToolCmd = &cobra.Command{
	Use:   "pre-tool-use",
	Short: "Coach tool usage and correct absolute paths",
	Run:   hookRun(hook.KindPreToolUse),
}

var hookPostToolCmd = &cobra.Command{
	Use:   "post-tool-use",
	Short: "Track a completed file operation in the session ledger",
	Run:   hookRun(hook.KindPostToolUse),
}

var hookStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Record the task completion signal",
	Run:   hookRun(hook.KindStop),
}

var hookSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Re-inject recorded context after compaction",
	Run:   hookRun(hook.KindSessionStart),
}

func init() {
	hookCmd.AddCommand(hookPromptCmd)
	hookCmd.AddCommand(hookPreToolCmd)
	hookCmd.AddCommand(hookPostToolCmd)
	hookCmd.AddCommand(hookStopCmd)
	hookCmd.AddCommand(hookSessionStartCmd)
}
