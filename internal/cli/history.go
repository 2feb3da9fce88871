package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/slicer/internal/config"
	"github.com/me/slicer/internal/report"
	"github.com/me/slicer/internal/store"
	"github.com/me/slicer/pkg/model"
)

func newHistoryCmd() *cobra.Command {
	var dbPath string
	var limit int
	var deleteRun bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show one run's report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.DBPath = dbPath
			path, err := cfg.ResolveDBPath()
			if err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(path, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate %s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			switch {
			case len(args) == 0 && deleteRun:
				return fmt.Errorf("--delete needs a run id")
			case len(args) == 0:
				return listRuns(ctx, out, st, limit)
			case deleteRun:
				if err := st.DeleteRun(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted: %s\n", args[0])
				return nil
			default:
				return showRun(ctx, out, st, args[0])
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "History database path (default ~/.slicer/history.db)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().BoolVar(&deleteRun, "delete", false, "Delete the given run")
	return cmd
}

const runRowFormat = "%-40s  %-16s  %-5s  %-8s  %-5s  %-6s  %s\n"

func listRuns(ctx context.Context, out io.Writer, st store.Store, limit int) error {
	runs, total, err := st.ListRuns(ctx, model.ListOptions{Limit: limit})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, runRowFormat, "ID", "STARTED", "NCPU", "TSLICE", "JOBS", "SLICES", "STATUS")
	for _, r := range runs {
		status := "unfinished"
		if r.Finished() {
			status = "took " + strings.TrimSpace(humanize.RelTime(r.StartedAt, *r.FinishedAt, "", ""))
		}
		fmt.Fprintf(out, runRowFormat,
			r.ID, humanize.Time(r.StartedAt), fmt.Sprint(r.Concurrency), r.SliceDuration,
			fmt.Sprint(r.JobCount), fmt.Sprint(r.FinalSlice), status)
	}
	if total > len(runs) {
		fmt.Fprintf(out, "\n(%d of %d shown)\n", len(runs), total)
	}
	return nil
}

func showRun(ctx context.Context, out io.Writer, st store.Store, id string) error {
	run, err := st.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Started:  %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	fmt.Fprintf(out, "CPUs:     %d\n", run.Concurrency)
	fmt.Fprintf(out, "Slice:    %s\n", run.SliceDuration)
	fmt.Fprintf(out, "Slices:   %s\n", humanize.Comma(int64(run.FinalSlice)))
	if run.Dropped > 0 || run.LaunchFailed > 0 {
		fmt.Fprintf(out, "Dropped:  %d (table full), %d failed to launch\n", run.Dropped, run.LaunchFailed)
	}
	return report.Write(out, report.Build(run.Jobs))
}
