package hook

import (
	"fmt"
	"io"
	"time"

	"github.com/guardian-coach/guardian/internal/coach"
	"github.com/guardian-coach/guardian/internal/config"
	"github.com/guardian-coach/guardian/internal/event"
	"github.com/guardian-coach/guardian/internal/logging"
	"github.com/guardian-coach/guardian/internal/pathfix"
	"github.com/guardian-coach/guardian/internal/render"
	"github.com/guardian-coach/guardian/internal/storage"
	"github.com/guardian-coach/guardian/internal/taskctx"
)

// maxCommandEcho bounds how much of an offending command a coaching denial
// repeats back.
const maxCommandEcho = 300

// Runtime wires one hook invocation's collaborators for a working directory.
type Runtime struct {
	cfg      config.Config
	svc      *taskctx.Service
	renderer *render.Renderer
}

// NewRuntime builds the runtime for a working directory.
func NewRuntime(cwd string, cfg config.Config) *Runtime {
	store := storage.NewWithRetention(config.ContextsDir(cwd), cfg.Retention)
	svc := taskctx.NewService(store, cwd, cfg.ArchivedTaskLimit)
	return &Runtime{
		cfg:      cfg,
		svc:      svc,
		renderer: render.New(svc, cwd, cfg),
	}
}

// Service exposes the context service (used by the contexts CLI).
func (rt *Runtime) Service() *taskctx.Service {
	return rt.svc
}

// Execute runs one hook invocation end to end: parse stdin, dispatch, write
// any response. It always succeeds from the host's point of view: every
// failure path degrades to "no response".
func Execute(kind Kind, stdin io.Reader, stdout io.Writer) {
	in, err := ParseInput(stdin)
	if err != nil {
		logging.Warn().Err(err).Str("hook", string(kind)).Msg("unreadable hook input")
		return
	}
	if in.CWD == "" {
		return
	}

	cfg := config.Load(in.CWD)
	logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel)})

	unsub := event.SubscribeAll(func(e event.Event) {
		logging.Debug().Str("event", string(e.Type)).Msg("guardian event")
	})
	defer unsub()

	rt := NewRuntime(in.CWD, cfg)
	out := rt.Dispatch(kind, in, time.Now())
	if out == nil {
		return
	}
	if err := out.Write(stdout); err != nil {
		logging.Warn().Err(err).Msg("failed to write hook response")
	}
}

// Dispatch routes one parsed event to its handler.
func (rt *Runtime) Dispatch(kind Kind, in *Input, now time.Time) *Output {
	switch kind {
	case KindUserPromptSubmit:
		return rt.HandleUserPrompt(in, now)
	case KindPostToolUse:
		return rt.HandlePostToolUse(in, now)
	case KindStop:
		return rt.HandleStop(in, now)
	case KindSessionStart:
		return rt.HandleSessionStart(in, now)
	case KindPreToolUse:
		return rt.HandlePreToolUse(in)
	default:
		return nil
	}
}

// HandleUserPrompt records a submitted prompt, deciding whether it starts a
// new task or redirects the running one.
func (rt *Runtime) HandleUserPrompt(in *Input, now time.Time) *Output {
	if in.SessionID == "" || in.Prompt == "" {
		return nil
	}

	kind := rt.svc.OnPrompt(in.SessionID, in.Prompt, in.When(now))
	switch kind {
	case taskctx.PromptNewTask:
		event.Publish(event.Event{Type: event.TaskStarted, Data: event.TaskStartedData{
			SessionID: in.SessionID, Prompt: in.Prompt,
		}})
	case taskctx.PromptIntervention:
		event.Publish(event.Event{Type: event.TaskIntervention, Data: event.TaskInterventionData{
			SessionID: in.SessionID, Prompt: in.Prompt,
		}})
	}
	event.Publish(event.Event{Type: event.ContextSaved, Data: event.ContextSavedData{SessionID: in.SessionID}})
	return nil
}

// operationForTool maps the host's file tools to ledger access types.
func operationForTool(toolName string) (taskctx.AccessType, bool) {
	switch toolName {
	case "Read":
		return taskctx.AccessRead, true
	case "Write":
		return taskctx.AccessWrite, true
	case "Edit", "MultiEdit":
		return taskctx.AccessUpdate, true
	default:
		return "", false
	}
}

// HandlePostToolUse updates the file ledger after a tool operation.
func (rt *Runtime) HandlePostToolUse(in *Input, now time.Time) *Output {
	if in.SessionID == "" {
		return nil
	}
	op, ok := operationForTool(in.ToolName)
	if !ok {
		return nil
	}
	path := in.FilePath()
	if path == "" {
		return nil
	}

	rt.svc.RecordAccess(in.SessionID, path, op, in.When(now))
	event.Publish(event.Event{Type: event.FileTracked, Data: event.FileTrackedData{
		SessionID: in.SessionID, Path: path, Access: string(op),
	}})
	return nil
}

// HandleStop records the completion signal bounding the current task.
func (rt *Runtime) HandleStop(in *Input, now time.Time) *Output {
	if in.SessionID == "" {
		return nil
	}
	rt.svc.OnStop(in.SessionID, in.When(now))
	event.Publish(event.Event{Type: event.TaskStopped, Data: event.TaskStoppedData{SessionID: in.SessionID}})
	return nil
}

// HandleSessionStart re-injects recorded context after compaction; any other
// session start resets the record.
func (rt *Runtime) HandleSessionStart(in *Input, now time.Time) *Output {
	if in.SessionID == "" {
		return nil
	}

	if in.Source != "compact" {
		rt.svc.Reset(in.SessionID, in.When(now))
		return nil
	}

	text, ok := rt.renderer.RenderOnRestart(in.SessionID, in.When(now))
	if !ok {
		return nil
	}
	event.Publish(event.Event{Type: event.ContextRendered, Data: event.ContextRenderedData{
		SessionID: in.SessionID, Bytes: len(text),
	}})
	return additionalContext(text)
}

// HandlePreToolUse is the coaching collaborator: it corrects absolute paths
// for the file tools and steers shell commands toward native tools. It never
// touches the context store.
func (rt *Runtime) HandlePreToolUse(in *Input) *Output {
	if pathfix.ShouldFix(in.ToolName) {
		return rt.fixToolPath(in)
	}

	if in.ToolName != "Bash" || !rt.cfg.CoachingEnabled {
		return nil
	}
	command := in.Command()
	if command == "" {
		return nil
	}
	s := coach.Analyze(command)
	if s == nil {
		return nil
	}
	return deny(fmt.Sprintf("%s\n\nCommand: %s", s.Reason, truncate(command, maxCommandEcho)))
}

func (rt *Runtime) fixToolPath(in *Input) *Output {
	correction := pathfix.AnalyzeAndFix(in.FilePath(), in.CWD)
	if correction == nil {
		return nil
	}

	// Edit validates the "file was read" state before updatedInput is
	// applied, so a rewrite would trip it; deny with guidance instead.
	if in.ToolName == "Edit" || in.ToolName == "MultiEdit" {
		return deny("PATH CORRECTION: Use a relative path instead.\n\n" + correction.Reason)
	}

	updated := make(map[string]any, len(in.ToolInput))
	for k, v := range in.ToolInput {
		updated[k] = v
	}
	updated["file_path"] = correction.Path
	return allowWithInput(updated, fmt.Sprintf("PATH CORRECTED: %s -> %s", in.FilePath(), correction.Path))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
