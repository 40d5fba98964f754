// Package outbox drives the durable subjective-grading queue. Submission
// writes a row transactionally; this worker is the trigger of record, so
// grading no longer depends on the student's browser staying open.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Job is one pending grading batch.
type Job struct {
	ID        int64
	SessionID string
}

// Processor runs the grading batch for a session.
type Processor interface {
	GradeSession(ctx context.Context, sessionID string) error
}

type Worker struct {
	db       *sql.DB
	proc     Processor
	log      *zap.Logger
	interval time.Duration
}

func NewWorker(db *sql.DB, proc Processor, interval time.Duration, log *zap.Logger) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{db: db, proc: proc, log: log, interval: interval}
}

// Run polls for pending jobs until the context is cancelled. Jobs are
// processed one at a time; the external service rate limit caps throughput
// anyway.
func (w *Worker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for {
				processed, err := w.ProcessOne(ctx)
				if err != nil {
					w.log.Warn("outbox poll failed", zap.Error(err))
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// ProcessOne claims and runs the oldest pending job. Returns false when the
// queue is empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	job, err := w.claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	if err := w.proc.GradeSession(ctx, job.SessionID); err != nil {
		w.log.Warn("grading batch failed",
			zap.Int64("job", job.ID), zap.String("session", job.SessionID), zap.Error(err))
		return true, w.finish(ctx, job.ID, "failed", err.Error())
	}
	return true, w.finish(ctx, job.ID, "done", "")
}

func (w *Worker) claim(ctx context.Context) (*Job, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT id, session_id FROM grading_outbox WHERE state='pending' ORDER BY id LIMIT 1`)
	var job Job
	if err := row.Scan(&job.ID, &job.SessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	res, err := w.db.ExecContext(ctx,
		`UPDATE grading_outbox SET state='working' WHERE id=$1 AND state='pending'`, job.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Claimed by someone else between select and update.
		return nil, nil
	}
	return &job, nil
}

func (w *Worker) finish(ctx context.Context, id int64, state, errText string) error {
	_, err := w.db.ExecContext(ctx,
		`UPDATE grading_outbox SET state=$1, error=$2, processed_at=$3 WHERE id=$4`,
		state, errText, time.Now().Unix(), id)
	return err
}
