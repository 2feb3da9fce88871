//go:build !unix

package process

import (
	"errors"
	"log/slog"
	"os"
)

// ErrUnsupported is returned on platforms without job-control signals.
var ErrUnsupported = errors.New("process control requires a unix platform")

// OS is unavailable on this platform; every call fails.
type OS struct{}

// NewOS returns a controller that reports ErrUnsupported.
func NewOS(_ Options, _ *os.File, _ *slog.Logger) *OS { return &OS{} }

func (c *OS) Launch(string) (int, error) { return 0, ErrUnsupported }
func (c *OS) Pause(int) (Status, error) { return StatusExited, ErrUnsupported }
func (c *OS) Resume(int) error { return ErrUnsupported }
func (c *OS) Probe(int) (Status, error) { return StatusExited, ErrUnsupported }
func (c *OS) Kill(int) error { return ErrUnsupported }
