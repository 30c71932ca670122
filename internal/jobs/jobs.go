// Package jobs persists recurring briefing schedules in Postgres.
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when no job matches the given id.
var ErrNotFound = errors.New("jobs: not found")

// Job is one recurring briefing.
type Job struct {
	ID        string         `db:"id" json:"id"`
	Topic     string         `db:"topic" json:"topic"`
	Mode      string         `db:"mode" json:"mode"`
	Sampling  string         `db:"sampling" json:"sampling"`
	DaysBack  int            `db:"days_back" json:"days_back"`
	Cadence   string         `db:"cadence" json:"cadence"` // daily|weekly
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	LastRun   sql.NullTime   `db:"last_run" json:"-"`
	LastRunID sql.NullString `db:"last_run_id" json:"-"`
}

// LastRunAt exposes the nullable last-run timestamp for JSON output.
func (j Job) LastRunAt() *time.Time {
	if !j.LastRun.Valid {
		return nil
	}
	t := j.LastRun.Time
	return &t
}

const schema = `
CREATE TABLE IF NOT EXISTS briefing_jobs (
	id          TEXT PRIMARY KEY,
	topic       TEXT NOT NULL,
	mode        TEXT NOT NULL DEFAULT 'auto',
	sampling    TEXT NOT NULL DEFAULT 'standard',
	days_back   INT  NOT NULL DEFAULT 7,
	cadence     TEXT NOT NULL DEFAULT 'daily',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_run    TIMESTAMPTZ,
	last_run_id TEXT
)`

// Registry stores jobs.
type Registry struct {
	db *sqlx.DB
}

// Open connects to Postgres and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Registry, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect jobs db: %w", err)
	}
	db.SetMaxOpenConns(4)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure jobs schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db *sqlx.DB) *Registry { return &Registry{db: db} }

// Close releases the connection pool.
func (r *Registry) Close() error { return r.db.Close() }

// Add creates a job and returns it with its generated id.
func (r *Registry) Add(ctx context.Context, topic, mode, sampling string, daysBack int, cadence string) (Job, error) {
	if topic == "" {
		return Job{}, errors.New("jobs: topic is required")
	}
	if mode == "" {
		mode = "auto"
	}
	if sampling == "" {
		sampling = "standard"
	}
	if daysBack <= 0 {
		daysBack = 7
	}
	switch cadence {
	case "":
		cadence = "daily"
	case "daily", "weekly":
	default:
		return Job{}, fmt.Errorf("jobs: unknown cadence %q", cadence)
	}

	job := Job{
		ID:        uuid.NewString(),
		Topic:     topic,
		Mode:      mode,
		Sampling:  sampling,
		DaysBack:  daysBack,
		Cadence:   cadence,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO briefing_jobs (id, topic, mode, sampling, days_back, cadence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.Topic, job.Mode, job.Sampling, job.DaysBack, job.Cadence, job.CreatedAt)
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// List returns all jobs, newest first.
func (r *Registry) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT id, topic, mode, sampling, days_back, cadence, created_at, last_run, last_run_id
		 FROM briefing_jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Get fetches one job.
func (r *Registry) Get(ctx context.Context, id string) (Job, error) {
	var job Job
	err := r.db.GetContext(ctx, &job,
		`SELECT id, topic, mode, sampling, days_back, cadence, created_at, last_run, last_run_id
		 FROM briefing_jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Remove deletes a job.
func (r *Registry) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM briefing_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastRun records the most recent execution of a job.
func (r *Registry) TouchLastRun(ctx context.Context, id, runID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE briefing_jobs SET last_run = now(), last_run_id = $2 WHERE id = $1`, id, runID)
	if err != nil {
		return fmt.Errorf("touch job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Due returns jobs whose cadence interval has elapsed since last_run,
// including jobs never run.
func (r *Registry) Due(ctx context.Context, now time.Time) ([]Job, error) {
	var jobs []Job
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT id, topic, mode, sampling, days_back, cadence, created_at, last_run, last_run_id
		 FROM briefing_jobs
		 WHERE last_run IS NULL
		    OR (cadence = 'daily'  AND last_run < $1)
		    OR (cadence = 'weekly' AND last_run < $2)
		 ORDER BY created_at`,
		now.Add(-24*time.Hour), now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("due jobs: %w", err)
	}
	return jobs, nil
}
