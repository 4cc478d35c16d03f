// Package render formats the accumulated session context into the text
// injected after conversation compaction, then resets the record so a second
// restart does not re-inject the same state.
package render

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/guardian-coach/guardian/internal/config"
	"github.com/guardian-coach/guardian/internal/taskctx"
)

// Render-time truncation limits. Capture is always verbatim; trimming for
// injection happens here and only here.
const (
	maxInitialPromptRunes = 1000
	maxInterventionRunes  = 200
	maxInterventions      = 5
)

// Renderer builds post-compaction context injections.
type Renderer struct {
	svc *taskctx.Service
	cwd string
	cfg config.Config
}

// New creates a renderer over the given context service.
func New(svc *taskctx.Service, cwd string, cfg config.Config) *Renderer {
	return &Renderer{svc: svc, cwd: cwd, cfg: cfg}
}

// RenderOnRestart produces the injectable context for a session resuming
// after compaction. Returns ok=false when there is nothing worth restating.
// As a side effect the ledger is cleared and the current task archived, so
// the next restart without intervening activity injects nothing.
func (r *Renderer) RenderOnRestart(sessionID string, now time.Time) (string, bool) {
	sc := r.svc.Load(sessionID)
	if sc.Empty() {
		return "", false
	}

	var b strings.Builder
	b.WriteString("⚠️ CONTEXT COMPACTED\n\n")
	b.WriteString("The conversation history was compacted. The summary you received captures\n")
	b.WriteString("the WHAT but rarely the WHY. The context below was recorded before compaction.\n\n")

	task := sc.CurrentTask
	if task != nil {
		fmt.Fprintf(&b, "Task started at %s (%s)\n", clock(task.StartedAt), ago(now.Sub(task.StartedAt)))
		fmt.Fprintf(&b, "Context restored at %s\n\n", clock(now))

		if task.InitialPrompt != "" {
			b.WriteString("INITIAL REQUEST:\n")
			b.WriteString(truncate(task.InitialPrompt, maxInitialPromptRunes))
			b.WriteString("\n\n")
		}

		if len(task.Interventions) > 0 {
			b.WriteString("USER INTERVENTIONS:\n")
			start := 0
			if len(task.Interventions) > maxInterventions {
				start = len(task.Interventions) - maxInterventions
			}
			for _, iv := range task.Interventions[start:] {
				fmt.Fprintf(&b, "  - [%s] %s\n", clock(iv.Timestamp), truncate(iv.Text, maxInterventionRunes))
			}
			b.WriteString("\n")
		}
	}

	r.writeLedger(&b, sc)

	if task != nil {
		r.writeRecentScan(&b, sc, task.StartedAt)
	}

	b.WriteString("Review this context and continue the task. If you are no longer sure what\n")
	b.WriteString("was already completed or why, stop and check in with the user before\n")
	b.WriteString("changing anything.\n")

	// Consume the record: archive the task, clear the ledger.
	if task != nil {
		r.svc.ArchiveCurrentTask(sc)
	}
	sc.FileLedger = make(map[string]taskctx.FileEntry)
	if !r.cfg.KeepArchivedTasks {
		sc.ArchivedTasks = nil
	}
	r.svc.Save(sc)

	return b.String(), true
}

// ledgerState is the render-time classification of one ledger path.
type ledgerState int

const (
	stateDirect ledgerState = iota
	stateExternal
	stateDeleted
)

// classify derives externality for one entry by statting it now. The stored
// entry is never mutated by this comparison.
func (r *Renderer) classify(entry taskctx.FileEntry) (ledgerState, time.Time) {
	onDisk, ok := r.svc.StatMtime(entry.Path)
	if !ok {
		return stateDeleted, time.Time{}
	}
	if entry.ModifiedExternally(onDisk) {
		return stateExternal, onDisk
	}
	return stateDirect, onDisk
}

func (r *Renderer) writeLedger(b *strings.Builder, sc *taskctx.SessionContext) {
	if len(sc.FileLedger) == 0 {
		return
	}

	keys := make([]string, 0, len(sc.FileLedger))
	for k := range sc.FileLedger {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	direct := make(map[taskctx.AccessType][]string)
	directMtime := make(map[string]time.Time)
	var external, deleted []string
	externalMtime := make(map[string]time.Time)

	for _, k := range keys {
		entry := sc.FileLedger[k]
		switch state, onDisk := r.classify(entry); state {
		case stateDeleted:
			deleted = append(deleted, k)
		case stateExternal:
			external = append(external, k)
			externalMtime[k] = onDisk
		default:
			direct[entry.AccessType] = append(direct[entry.AccessType], k)
			directMtime[k] = onDisk
		}
	}

	if len(direct) > 0 {
		b.WriteString("FILES ACCESSED THIS TASK:\n")
		for _, at := range []taskctx.AccessType{taskctx.AccessRead, taskctx.AccessUpdate, taskctx.AccessWrite} {
			paths := direct[at]
			if len(paths) == 0 {
				continue
			}
			fmt.Fprintf(b, "  %s:\n", at)
			for _, p := range paths {
				fmt.Fprintf(b, "    - %s (%s)\n", p, clock(directMtime[p]))
			}
		}
		b.WriteString("\n")
	}

	if len(external) > 0 {
		b.WriteString("EXTERNALLY MODIFIED (subagents, parallel sessions, or outside tools):\n")
		for _, p := range external {
			fmt.Fprintf(b, "  - %s (%s)\n", p, clock(externalMtime[p]))
		}
		b.WriteString("\n")
	}

	if len(deleted) > 0 {
		b.WriteString("DELETED SINCE LAST ACCESS:\n")
		for _, p := range deleted {
			fmt.Fprintf(b, "  - %s\n", p)
		}
		b.WriteString("\n")
	}
}

// recentFile is one hit from the workdir scan.
type recentFile struct {
	path  string
	mtime time.Time
}

// writeRecentScan lists files modified since the task started that the
// ledger does not already cover: work done by subagents, parallel sessions,
// or tools outside the assistant entirely.
func (r *Renderer) writeRecentScan(b *strings.Builder, sc *taskctx.SessionContext, since time.Time) {
	if r.cfg.RecentFileLimit <= 0 {
		return
	}

	recent := r.scanRecent(sc, since)
	if len(recent) == 0 {
		return
	}

	b.WriteString("OTHER FILES MODIFIED SINCE TASK START:\n")
	for _, f := range recent {
		fmt.Fprintf(b, "  - %s (%s)\n", f.path, clock(f.mtime))
	}
	b.WriteString("\n")
}

func (r *Renderer) scanRecent(sc *taskctx.SessionContext, since time.Time) []recentFile {
	var hits []recentFile

	filepath.WalkDir(r.cwd, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep going
		}
		rel, relErr := filepath.Rel(r.cwd, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if r.ignored(rel + "/") {
				return fs.SkipDir
			}
			return nil
		}
		if r.ignored(rel) {
			return nil
		}
		if _, tracked := sc.FileLedger[rel]; tracked {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil || info.ModTime().Before(since) {
			return nil
		}
		hits = append(hits, recentFile{path: rel, mtime: info.ModTime()})
		return nil
	})

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].mtime.After(hits[j].mtime)
	})
	if len(hits) > r.cfg.RecentFileLimit {
		hits = hits[:r.cfg.RecentFileLimit]
	}
	return hits
}

// ignored matches a slash-relative path against the configured doublestar
// patterns. Directory candidates arrive with a trailing slash so patterns
// like ".*/**" prune whole subtrees.
func (r *Renderer) ignored(rel string) bool {
	probe := rel
	if strings.HasSuffix(rel, "/") {
		// Match the directory as if it had content, so "dir/**" prunes it.
		probe = rel + "_"
	}
	for _, pattern := range r.cfg.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, probe); ok {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func clock(t time.Time) string {
	return t.Format("15:04")
}

// ago renders a rough relative duration for anchoring timestamps.
func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}
