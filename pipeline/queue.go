// Package pipeline runs asynchronous note processing: an SQLite-backed job
// queue, a polling worker, and the processor that walks a note through
// extraction, correction, enhancement and flashcard generation.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/embelhq/embel/idgen"
)

// JobEnhance is the only job type today; the queue carries the type column
// so future job kinds (re-export, cleanup) slot in without migration.
const JobEnhance = "enhance_note"

const defaultMaxAttempts = 3

// Schema is applied by dbopen at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS note_jobs (
	id           TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	note_id      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	error        TEXT NOT NULL DEFAULT '',
	attempts     INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 3,
	created_at   INTEGER NOT NULL,
	started_at   INTEGER,
	finished_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_note_jobs_status ON note_jobs(type, status, created_at);
`

// Job is one unit of asynchronous work tied to a note.
type Job struct {
	ID          string
	Type        string
	NoteID      string
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
}

// Queue is the SQLite-backed job queue. Claims are atomic, so several
// workers can share one database.
type Queue struct {
	db *sql.DB
}

func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue inserts a pending job and returns its ID. Never blocks on
// processing.
func (q *Queue) Enqueue(ctx context.Context, jobType, noteID string) (string, error) {
	id := idgen.Job()
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO note_jobs (id, type, note_id, created_at, max_attempts)
		VALUES (?, ?, ?, ?, ?)`,
		id, jobType, noteID, time.Now().Unix(), defaultMaxAttempts)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

// Poll claims the oldest pending job of the given type, marking it
// processing in the same transaction. Returns nil when the queue is empty.
func (q *Queue) Poll(ctx context.Context, jobType string) (*Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, type, note_id, attempts, max_attempts, created_at
		FROM note_jobs
		WHERE status = 'pending' AND type = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, jobType)

	var j Job
	var createdAt int64
	err = row.Scan(&j.ID, &j.Type, &j.NoteID, &j.Attempts, &j.MaxAttempts, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	j.CreatedAt = time.Unix(createdAt, 0)

	_, err = tx.ExecContext(ctx,
		`UPDATE note_jobs SET status = 'processing', started_at = ? WHERE id = ?`,
		time.Now().Unix(), j.ID)
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Complete marks a job done.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE note_jobs SET status = 'completed', finished_at = ? WHERE id = ?`,
		time.Now().Unix(), jobID)
	return err
}

// Fail records a failure and increments attempts. When attempts reach the
// cap the job goes poison and will not be retried; the returned flag tells
// the worker this was the last attempt.
func (q *Queue) Fail(ctx context.Context, jobID, errMsg string) (exhausted bool, err error) {
	_, err = q.db.ExecContext(ctx, `
		UPDATE note_jobs SET
			status = CASE WHEN attempts + 1 >= max_attempts THEN 'poison' ELSE 'failed' END,
			error = ?,
			attempts = attempts + 1,
			finished_at = ?
		WHERE id = ?`, errMsg, time.Now().Unix(), jobID)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	var status string
	if err := q.db.QueryRowContext(ctx, `SELECT status FROM note_jobs WHERE id = ?`, jobID).Scan(&status); err != nil {
		return false, fmt.Errorf("read job status: %w", err)
	}
	return status == "poison", nil
}

// RetryFailed requeues failed jobs that still have attempts left. Poison
// jobs stay put. Returns the number of jobs requeued.
func (q *Queue) RetryFailed(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE note_jobs SET status = 'pending', started_at = NULL, finished_at = NULL
		WHERE status = 'failed' AND attempts < max_attempts`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
