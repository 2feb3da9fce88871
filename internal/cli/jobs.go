package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs [index]",
		Short: "Show the job table of a running scheduler",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				idx, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid job index %q", args[0])
				}
				job, err := client.Job(idx)
				if err != nil {
					return fmt.Errorf("get job: %w", err)
				}
				fmt.Fprintf(out, jobRowFormat, "INDEX", "PID", "STATE", "RAN", "WAITED", "DONE@", "NAME")
				printJobRow(out, job)
				return nil
			}

			snap, err := client.Snapshot()
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			printSnapshot(out, snap)
			return nil
		},
	}
}
