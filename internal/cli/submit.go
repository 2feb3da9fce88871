package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <executable>...",
		Short: "Queue executables on a running scheduler",
		Long: `Queue executables through the admission API of a scheduler started
with "slicer run --addr". Paths containing a separator are made absolute
first, since the scheduler may run in another directory; bare names are
looked up on the scheduler's PATH.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				path, err := submissionPath(arg)
				if err != nil {
					return err
				}
				res, err := client.Submit(path)
				if err != nil {
					return fmt.Errorf("submit %s: %w", path, err)
				}
				fmt.Fprintf(out, "Queued: %s (admission queue: %d)\n", res.Path, res.AdmissionLen)
			}
			return nil
		},
	}
}

func submissionPath(arg string) (string, error) {
	if !strings.ContainsRune(arg, filepath.Separator) {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	return abs, nil
}
