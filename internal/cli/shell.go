package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/me/slicer/internal/jobtable"
)

const shellPrompt = "slicer> "

// shell reads submissions line by line. It only talks to the scheduler
// through the Guard's admission and snapshot calls.
type shell struct {
	in     *bufio.Scanner
	out    io.Writer
	table  *jobtable.Guard
	logger *slog.Logger
	prompt bool
}

func newShell(in io.Reader, out io.Writer, table *jobtable.Guard, logger *slog.Logger, prompt bool) *shell {
	return &shell{
		in:     bufio.NewScanner(in),
		out:    out,
		table:  table,
		logger: logger.With("component", "shell"),
		prompt: prompt,
	}
}

// Run processes lines until exit, quit or end of input.
func (s *shell) Run() error {
	for {
		if s.prompt {
			fmt.Fprint(s.out, shellPrompt)
		}
		if !s.in.Scan() {
			if s.prompt {
				fmt.Fprintln(s.out)
			}
			return s.in.Err()
		}
		if quit := s.exec(s.in.Text()); quit {
			return nil
		}
	}
}

// exec handles one input line and reports whether the shell should stop.
func (s *shell) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprintln(s.out, "commands: submit <path> | <path> | jobs | exit")
	case "jobs":
		snap := s.table.Snapshot()
		printSnapshot(s.out, &snap)
	case "submit":
		path := strings.TrimSpace(rest)
		if path == "" {
			fmt.Fprintln(s.out, "usage: submit <path>")
			return false
		}
		s.submit(path)
	default:
		s.submit(line)
	}
	return false
}

func (s *shell) submit(path string) {
	n, err := s.table.Submit(path)
	switch {
	case errors.Is(err, jobtable.ErrAdmissionFull):
		fmt.Fprintf(s.out, "admission queue full (%d pending), %s not queued\n", n, path)
	case err != nil:
		fmt.Fprintf(s.out, "cannot queue %q: %v\n", path, err)
	default:
		s.logger.Debug("queued", "path", path, "admission_len", n)
	}
}
