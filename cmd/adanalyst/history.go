package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/adanalyst/internal/config"
	"github.com/fyrsmithlabs/adanalyst/internal/store"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show (0 for all)")
}

// historyCmd lists recorded runs, or the events of one run.
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded pipeline runs",
	Long: `Show pipeline runs recorded in the history database (store.sqlite_path).

Examples:
  # Last 10 runs
  adanalyst history

  # Stage events of one run
  adanalyst history 20250102T030405Z`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.SQLitePath == "" {
		return fmt.Errorf("run history is disabled: set store.sqlite_path or %sSTORE_SQLITE_PATH", config.EnvPrefix)
	}

	st, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		events, err := st.Events(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printEvents(out, events)
		return nil
	}

	runs, err := st.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	printRuns(out, runs)
	return nil
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no runs recorded"))
		return
	}
	for _, r := range runs {
		took := dimStyle.Render("running")
		if r.FinishedAt != nil {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s %s  %-9s %-8s %s\n",
			statusSymbol(r.Status), r.ID, r.Status, took, r.Query)
	}
}

func printEvents(w io.Writer, events []store.Event) {
	for _, e := range events {
		fmt.Fprintf(w, "%3d %s %s\n", e.Seq, dimStyle.Render(e.Timestamp.Format(time.RFC3339)), formatEvent(e.StageEvent))
	}
}
