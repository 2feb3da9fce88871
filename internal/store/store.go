package store

import (
	"context"

	"github.com/me/slicer/pkg/model"
)

// Store persists the history of scheduler runs.
type Store interface {
	// CreateRun records the start of a run. Jobs are ignored.
	CreateRun(ctx context.Context, run *model.Run) error
	// FinishRun stores the final tick, counters, finish time and job table.
	FinishRun(ctx context.Context, run *model.Run) error
	// GetRun returns a run with its jobs, or nil if it does not exist.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns runs newest first without their jobs, plus the total.
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)
	DeleteRun(ctx context.Context, id string) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
