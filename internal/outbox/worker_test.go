package outbox

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Posologia-Edu/prova-facil/internal/db"
)

type recordingProcessor struct {
	sessions []string
	err      error
}

func (p *recordingProcessor) GradeSession(_ context.Context, sessionID string) error {
	p.sessions = append(p.sessions, sessionID)
	return p.err
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func enqueue(t *testing.T, h *sql.DB, sessionID string) {
	t.Helper()
	if _, err := h.Exec(`INSERT INTO grading_outbox (session_id,state,created_at) VALUES ($1,'pending',$2)`,
		sessionID, time.Now().Unix()); err != nil {
		t.Fatal(err)
	}
}

func jobState(t *testing.T, h *sql.DB, sessionID string) (state, errText string) {
	t.Helper()
	row := h.QueryRow(`SELECT state, error FROM grading_outbox WHERE session_id=$1`, sessionID)
	if err := row.Scan(&state, &errText); err != nil {
		t.Fatal(err)
	}
	return state, errText
}

func TestProcessOneEmptyQueue(t *testing.T) {
	w := NewWorker(newTestDB(t), &recordingProcessor{}, time.Second, zap.NewNop())
	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if processed {
		t.Error("processed reported true on an empty queue")
	}
}

func TestProcessOneSuccess(t *testing.T) {
	h := newTestDB(t)
	proc := &recordingProcessor{}
	w := NewWorker(h, proc, time.Second, zap.NewNop())
	enqueue(t, h, "sess1")
	enqueue(t, h, "sess2")

	// Oldest first.
	for _, want := range []string{"sess1", "sess2"} {
		processed, err := w.ProcessOne(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !processed {
			t.Fatalf("job for %s not processed", want)
		}
	}
	if len(proc.sessions) != 2 || proc.sessions[0] != "sess1" || proc.sessions[1] != "sess2" {
		t.Errorf("processed order = %v", proc.sessions)
	}
	for _, id := range []string{"sess1", "sess2"} {
		if state, _ := jobState(t, h, id); state != "done" {
			t.Errorf("%s state = %q, want done", id, state)
		}
	}
}

func TestProcessOneRecordsFailure(t *testing.T) {
	h := newTestDB(t)
	proc := &recordingProcessor{err: errors.New("model unavailable")}
	w := NewWorker(h, proc, time.Second, zap.NewNop())
	enqueue(t, h, "sess1")

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !processed {
		t.Fatal("job not processed")
	}
	state, errText := jobState(t, h, "sess1")
	if state != "failed" {
		t.Errorf("state = %q, want failed", state)
	}
	if errText != "model unavailable" {
		t.Errorf("error = %q", errText)
	}

	// A failed job is not retried.
	processed, err = w.ProcessOne(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if processed {
		t.Error("failed job was claimed again")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newTestDB(t)
	w := NewWorker(h, &recordingProcessor{}, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
