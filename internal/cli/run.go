package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/me/slicer/internal/config"
	"github.com/me/slicer/internal/jobtable"
	"github.com/me/slicer/internal/logging"
	"github.com/me/slicer/internal/process"
	"github.com/me/slicer/internal/report"
	"github.com/me/slicer/internal/scheduler"
	"github.com/me/slicer/internal/server"
	"github.com/me/slicer/internal/store"
	"github.com/me/slicer/pkg/model"
)

// runFlags holds `slicer run` flag values. Only flags the user set override
// the config file.
type runFlags struct {
	configPath string
	cfg        config.Config
}

func newRunCmd() *cobra.Command {
	f := &runFlags{cfg: config.Default()}
	return f.command(func(cmd *cobra.Command, cfg config.Config, args []string) error {
		return runScheduler(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout())
	})
}

// command builds the run command around run, which receives the merged config.
func (f *runFlags) command(run func(cmd *cobra.Command, cfg config.Config, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [executable...]",
		Short: "Start the scheduler",
		Long: `Start the scheduler. Executables given as arguments are queued at
startup. More can be submitted on stdin (one path per line, or
"submit <path>"), and through the HTTP admission API when --addr is set.

The scheduler stops on SIGINT, SIGTERM, "exit" or end of input, kills every
unfinished job and prints the execution report. With --wait it lets queued
jobs finish after input ends instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			return run(cmd, cfg, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fl.IntVarP(&f.cfg.Concurrency, "ncpu", "n", f.cfg.Concurrency, "Number of execution slots")
	fl.DurationVarP(&f.cfg.SliceDuration, "tslice", "t", f.cfg.SliceDuration, "Time slice length")
	fl.IntVar(&f.cfg.Capacity, "capacity", f.cfg.Capacity, "Maximum number of jobs")
	fl.StringVarP(&f.cfg.Output, "output", "o", f.cfg.Output, `Job stdout/stderr: file path, "none", or empty to inherit`)
	fl.StringVar(&f.cfg.Addr, "addr", f.cfg.Addr, "Admission API listen address (disabled when empty)")
	fl.StringVar(&f.cfg.DBPath, "db", f.cfg.DBPath, "History database path (default ~/.slicer/history.db)")
	fl.BoolVar(&f.cfg.NoHistory, "no-history", f.cfg.NoHistory, "Do not record this run")
	fl.BoolVar(&f.cfg.Shell, "shell", f.cfg.Shell, "Read submissions from stdin")
	fl.BoolVarP(&f.cfg.Wait, "wait", "w", f.cfg.Wait, "Let jobs finish after input ends")
	fl.IntVar(&f.cfg.ConfirmRetries, "confirm-retries", f.cfg.ConfirmRetries, "Polls to confirm a process paused")
	fl.DurationVar(&f.cfg.ConfirmInterval, "confirm-interval", f.cfg.ConfirmInterval, "Delay between pause confirmation polls")

	return cmd
}

// resolve merges defaults, the config file and explicitly set flags.
func (f *runFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("ncpu", func() { cfg.Concurrency = f.cfg.Concurrency })
	set("tslice", func() { cfg.SliceDuration = f.cfg.SliceDuration })
	set("capacity", func() { cfg.Capacity = f.cfg.Capacity })
	set("output", func() { cfg.Output = f.cfg.Output })
	set("addr", func() { cfg.Addr = f.cfg.Addr })
	set("db", func() { cfg.DBPath = f.cfg.DBPath })
	set("no-history", func() { cfg.NoHistory = f.cfg.NoHistory })
	set("shell", func() { cfg.Shell = f.cfg.Shell })
	set("wait", func() { cfg.Wait = f.cfg.Wait })
	set("confirm-retries", func() { cfg.ConfirmRetries = f.cfg.ConfirmRetries })
	set("confirm-interval", func() { cfg.ConfirmInterval = f.cfg.ConfirmInterval })
	set("log-level", func() { cfg.LogLevel = flagLogLevel })
	set("log-format", func() { cfg.LogFormat = flagLogFormat })
	if flagDebug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runScheduler owns one scheduler run from startup to the final report.
func runScheduler(ctx context.Context, cfg config.Config, initial []string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	output, closeOutput, err := cfg.OpenOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	guard := jobtable.NewGuard(jobtable.New(cfg.Capacity))
	for _, p := range initial {
		if _, err := guard.Submit(p); err != nil {
			return fmt.Errorf("queue %s: %w", p, err)
		}
	}

	procs := process.NewOS(process.Options{
		ConfirmRetries:  cfg.ConfirmRetries,
		ConfirmInterval: cfg.ConfirmInterval,
	}, output, logger)
	sched := scheduler.NewLoop(guard, procs, scheduler.Config{
		Concurrency:   cfg.Concurrency,
		SliceDuration: cfg.SliceDuration,
	}, logger)

	hist := openHistory(ctx, cfg, logger)
	if hist != nil {
		defer hist.store.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	if cfg.Addr != "" {
		opts := []server.Option{server.WithScheduler(sched)}
		if hist != nil {
			opts = append(opts, server.WithStore(hist.store))
		}
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server.New(guard, logger, opts...).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("admission API listening", "addr", cfg.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admission API failed", "error", err)
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// The shell goroutine may stay blocked on stdin after a signal; it ends
	// with the process.
	var shellDone chan struct{}
	if cfg.Shell {
		shellDone = make(chan struct{})
		sh := newShell(in, out, guard, logger, interactive(in))
		go func() {
			defer close(shellDone)
			if err := sh.Run(); err != nil {
				logger.Warn("reading input", "error", err)
			}
		}()
		select {
		case <-ctx.Done():
		case <-shellDone:
		}
	}
	switch {
	case cfg.Wait:
		waitSettled(ctx, guard, cfg.SliceDuration)
	case shellDone == nil:
		<-ctx.Done()
	}

	cancel()
	<-sched.Done()

	snap := guard.Snapshot()
	stats := sched.Stats()
	if err := report.Write(out, report.Build(snap.Jobs)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if stats.Dropped > 0 || stats.LaunchFailed > 0 {
		fmt.Fprintf(out, "%d submission(s) dropped (table full), %d failed to launch\n",
			stats.Dropped, stats.LaunchFailed)
	}

	if hist != nil {
		hist.finish(snap, stats, out)
	}
	return nil
}

// interactive reports whether in is a terminal, in which case the shell
// prints a prompt.
func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// waitSettled blocks until nothing is pending and every job is DONE, or ctx ends.
func waitSettled(ctx context.Context, guard *jobtable.Guard, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var settled bool
		guard.View(func(t *jobtable.Table) error {
			settled = t.Settled()
			return nil
		})
		if settled {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// history records one run. Failures are logged and never stop scheduling.
type history struct {
	store  store.Store
	run    *model.Run
	logger *slog.Logger
}

func openHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) *history {
	if cfg.NoHistory {
		return nil
	}
	path, err := cfg.ResolveDBPath()
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		logger.Warn("history disabled", "error", fmt.Errorf("migrate %s: %w", path, err))
		return nil
	}

	run := &model.Run{
		ID:            "run_" + uuid.New().String(),
		Concurrency:   cfg.Concurrency,
		SliceDuration: cfg.SliceDuration,
		Capacity:      cfg.Capacity,
		StartedAt:     time.Now().UTC(),
	}
	if err := st.CreateRun(ctx, run); err != nil {
		st.Close()
		logger.Warn("history disabled", "error", fmt.Errorf("create run: %w", err))
		return nil
	}
	logger.Info("recording run", "run_id", run.ID, "db", path)
	return &history{store: st, run: run, logger: logger}
}

func (h *history) finish(snap model.Snapshot, stats scheduler.Stats, out io.Writer) {
	now := time.Now().UTC()
	h.run.FinalSlice = snap.CurrentSlice
	h.run.Dropped = int(stats.Dropped)
	h.run.LaunchFailed = int(stats.LaunchFailed)
	h.run.FinishedAt = &now
	h.run.Jobs = snap.Jobs

	// The run context is already cancelled by now.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.store.FinishRun(ctx, h.run); err != nil {
		h.logger.Warn("record run", "run_id", h.run.ID, "error", err)
		return
	}
	fmt.Fprintf(out, "Run recorded: %s\n", h.run.ID)
}
