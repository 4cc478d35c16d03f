package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/guardian-coach/guardian/internal/config"
	"github.com/guardian-coach/guardian/internal/event"
	"github.com/guardian-coach/guardian/internal/storage"
	"github.com/guardian-coach/guardian/internal/taskctx"
)

var contextsDir string

var contextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "Inspect and maintain recorded session contexts",
}

var contextsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List session context records",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := contextsStore()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tLAST ACTIVITY\tTASK\tFILES")
		err = store.Scan(func(sessionID string, data json.RawMessage) error {
			var sc taskctx.SessionContext
			if jsonErr := json.Unmarshal(data, &sc); jsonErr != nil {
				fmt.Fprintf(w, "%s\t(corrupt)\t-\t-\n", sessionID)
				return nil
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
				sessionID,
				sc.LastActivityAt.Format(time.RFC3339),
				taskState(&sc),
				len(sc.FileLedger),
			)
			return nil
		})
		if err != nil {
			return err
		}
		return w.Flush()
	},
}

var contextsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print one session context record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := contextsStore()
		if err != nil {
			return err
		}

		var sc taskctx.SessionContext
		if err := store.Get(args[0], &sc); err != nil {
			return fmt.Errorf("session %q: %w", args[0], err)
		}

		out, err := json.MarshalIndent(sc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var contextsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention cap to stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := contextsStore()
		if err != nil {
			return err
		}

		evicted := store.Prune()
		if len(evicted) > 0 {
			event.Publish(event.Event{Type: event.ContextPruned, Data: event.ContextPrunedData{SessionIDs: evicted}})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "evicted %d record(s)\n", len(evicted))
		for _, id := range evicted {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", id)
		}
		return nil
	},
}

var contextsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream changes to the task-contexts directory",
	Long: `Stream changes to the task-contexts directory as hooks fire. A debugging
aid for hook development; the hook flow itself never watches anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := contextsStore()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(store.Dir(), 0755); err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()
		if err := watcher.Add(store.Dir()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", store.Dir())
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", time.Now().Format("15:04:05"), ev.Op, ev.Name)
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintln(cmd.ErrOrStderr(), watchErr)
			}
		}
	},
}

func contextsStore() (*storage.Store, error) {
	cwd, err := GetWorkDir(contextsDir)
	if err != nil {
		return nil, err
	}
	cfg := config.Load(cwd)
	return storage.NewWithRetention(config.ContextsDir(cwd), cfg.Retention), nil
}

func taskState(sc *taskctx.SessionContext) string {
	switch {
	case sc.CurrentTask == nil:
		return "none"
	case sc.CurrentTask.Stopped():
		return "stopped"
	default:
		return "running"
	}
}

func init() {
	contextsCmd.PersistentFlags().StringVarP(&contextsDir, "directory", "C", "", "Project directory (default: current directory)")
	contextsCmd.AddCommand(contextsListCmd)
	contextsCmd.AddCommand(contextsShowCmd)
	contextsCmd.AddCommand(contextsPruneCmd)
	contextsCmd.AddCommand(contextsWatchCmd)
}
