package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/slicer/internal/logging"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default admission API URL, checking SLICER_SERVER first.
func defaultServer() string {
	if s := os.Getenv("SLICER_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8090"
}

// NewRootCmd creates the root cobra command for the slicer CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "slicer",
		Short: "slicer time-slices executables across a fixed number of CPUs",
		Long: `slicer runs submitted executables as OS processes and shares a fixed
number of execution slots between them round-robin, pausing and resuming
each process with SIGSTOP and SIGCONT at every time slice.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Admission API URL (or SLICER_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newSubmitCmd(),
		newJobsCmd(),
		newHistoryCmd(),
	)

	return root
}
