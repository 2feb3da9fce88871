package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/slicer/pkg/model"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so text ordering in SQL matches time ordering.
// Stored values are UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	// Connection pragmas go in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, concurrency, slice_ns, capacity, final_slice, dropped, launch_failed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Concurrency, int64(run.SliceDuration), run.Capacity,
		run.FinalSlice, run.Dropped, run.LaunchFailed,
		run.StartedAt.UTC().Format(timeLayout), formatTimePtr(run.FinishedAt),
	)
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID, "jobs", len(run.Jobs))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE runs SET final_slice = ?, dropped = ?, launch_failed = ?, finished_at = ? WHERE id = ?`,
		run.FinalSlice, run.Dropped, run.LaunchFailed, formatTimePtr(run.FinishedAt), run.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_jobs WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	for _, j := range run.Jobs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_jobs (run_id, idx, pid, name, state, started, submission_slice, completion_slice, slices_ran, slices_waited)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, j.Index, j.PID, j.Name, string(j.State), boolToInt(j.Started),
			j.SubmissionSlice, j.CompletionSlice, j.SlicesRan, j.SlicesWaited,
		)
		if err != nil {
			return fmt.Errorf("insert job %d: %w", j.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	run.JobCount = len(run.Jobs)
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx, selectRun+` WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	jobs, err := s.listJobs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	run.Jobs = jobs
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		selectRun+` ORDER BY r.started_at DESC LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "runs", "id", id)

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

const selectRun = `SELECT r.id, r.concurrency, r.slice_ns, r.capacity, r.final_slice, r.dropped, r.launch_failed,
		r.started_at, r.finished_at,
		(SELECT COUNT(*) FROM run_jobs j WHERE j.run_id = r.id)
	FROM runs r`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	var run model.Run
	var sliceNS int64
	var startedAt string
	var finishedAt *string

	if err := sc.Scan(&run.ID, &run.Concurrency, &sliceNS, &run.Capacity, &run.FinalSlice,
		&run.Dropped, &run.LaunchFailed, &startedAt, &finishedAt, &run.JobCount); err != nil {
		return nil, err
	}
	run.SliceDuration = time.Duration(sliceNS)
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	run.FinishedAt = parseTimePtr(finishedAt)
	return &run, nil
}

func (s *SQLiteStore) listJobs(ctx context.Context, runID string) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, pid, name, state, started, submission_slice, completion_slice, slices_ran, slices_waited
		 FROM run_jobs WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var state string
		var started int
		if err := rows.Scan(&j.Index, &j.PID, &j.Name, &state, &started,
			&j.SubmissionSlice, &j.CompletionSlice, &j.SlicesRan, &j.SlicesWaited); err != nil {
			return nil, err
		}
		j.State = model.JobState(state)
		j.Started = started != 0
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
