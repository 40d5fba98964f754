package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Posologia-Edu/prova-facil/internal/blueprint"
	"github.com/Posologia-Edu/prova-facil/internal/grading"
)

// SQLStore persists publications, sessions and answers. Flow logic (gate,
// submission, grading) lives in Service; this layer is row plumbing.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// --- publications ---

func (s *SQLStore) CreatePublication(ctx context.Context, p *Publication) error {
	if p.Snapshot == nil {
		return errors.New("publication requires a blueprint snapshot")
	}
	sj, err := json.Marshal(p.Snapshot)
	if err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	// Regenerate on access-code collision; the unique column is the arbiter.
	for attempt := 0; attempt < 5; attempt++ {
		if p.AccessCode == "" {
			p.AccessCode = NewAccessCode()
		}
		_, err = s.db.ExecContext(ctx, `INSERT INTO publications
			(id,exam_id,owner_id,access_code,time_limit_min,start_at,end_at,is_active,snapshot_json,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			p.ID, p.ExamID, p.OwnerID, p.AccessCode, p.TimeLimitMinutes,
			nullUnix(p.StartAt), nullUnix(p.EndAt), p.IsActive, string(sj), p.CreatedAt.Unix())
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			p.AccessCode = ""
			continue
		}
		return err
	}
	return err
}

func (s *SQLStore) GetPublication(ctx context.Context, id string) (*Publication, error) {
	return s.getPublication(ctx, `WHERE id=$1`, id)
}

func (s *SQLStore) GetPublicationByCode(ctx context.Context, code string) (*Publication, error) {
	return s.getPublication(ctx, `WHERE access_code=$1`, code)
}

func (s *SQLStore) getPublication(ctx context.Context, where string, arg interface{}) (*Publication, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,owner_id,access_code,time_limit_min,start_at,end_at,is_active,snapshot_json,created_at
		FROM publications `+where, arg)
	var p Publication
	var startAt, endAt sql.NullInt64
	var sj string
	var createdAt int64
	if err := row.Scan(&p.ID, &p.ExamID, &p.OwnerID, &p.AccessCode, &p.TimeLimitMinutes,
		&startAt, &endAt, &p.IsActive, &sj, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPublicationGone
		}
		return nil, err
	}
	p.StartAt = unixPtr(startAt)
	p.EndAt = unixPtr(endAt)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	var bp blueprint.Blueprint
	if err := json.Unmarshal([]byte(sj), &bp); err != nil {
		return nil, err
	}
	p.Snapshot = &bp
	return &p, nil
}

func (s *SQLStore) SetPublicationActive(ctx context.Context, ownerID, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE publications SET is_active=$1 WHERE id=$2 AND owner_id=$3`, active, id, ownerID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrPublicationGone
	}
	return nil
}

func (s *SQLStore) ListPublications(ctx context.Context, ownerID string) ([]*Publication, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,exam_id,owner_id,access_code,time_limit_min,start_at,end_at,is_active,created_at
		FROM publications WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Publication
	for rows.Next() {
		var p Publication
		var startAt, endAt sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.ExamID, &p.OwnerID, &p.AccessCode, &p.TimeLimitMinutes,
			&startAt, &endAt, &p.IsActive, &createdAt); err != nil {
			return nil, err
		}
		p.StartAt = unixPtr(startAt)
		p.EndAt = unixPtr(endAt)
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, &p)
	}
	return out, rows.Err()
}

// --- sessions ---

func (s *SQLStore) CreateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO exam_sessions
		(id,publication_id,student_id,status,started_at,auto_submitted)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sess.ID, sess.PublicationID, sess.StudentID, string(sess.Status), sess.StartedAt.Unix(), sess.AutoSubmitted)
	return err
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.getSession(ctx, `WHERE id=$1`, id)
}

// GetSessionByStudent finds the single session for (publication, student).
func (s *SQLStore) GetSessionByStudent(ctx context.Context, publicationID, studentID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+` WHERE publication_id=$1 AND student_id=$2`,
		publicationID, studentID)
	return scanSession(row)
}

const sessionSelect = `SELECT id,publication_id,student_id,status,started_at,finished_at,total_score,max_score,auto_submitted
	FROM exam_sessions`

func (s *SQLStore) getSession(ctx context.Context, where string, args ...interface{}) (*Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+" "+where, args...)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var status string
	var startedAt int64
	var finishedAt sql.NullInt64
	var total, max sql.NullFloat64
	if err := row.Scan(&sess.ID, &sess.PublicationID, &sess.StudentID, &status,
		&startedAt, &finishedAt, &total, &max, &sess.AutoSubmitted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	sess.Status = SessionStatus(status)
	sess.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		sess.FinishedAt = &t
	}
	if total.Valid {
		sess.TotalScore = &total.Float64
	}
	if max.Valid {
		sess.MaxScore = &max.Float64
	}
	return &sess, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, publicationID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, sessionSelect+` WHERE publication_id=$1 ORDER BY started_at DESC`,
		publicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Session
	for rows.Next() {
		var sess Session
		var status string
		var startedAt int64
		var finishedAt sql.NullInt64
		var total, max sql.NullFloat64
		if err := rows.Scan(&sess.ID, &sess.PublicationID, &sess.StudentID, &status,
			&startedAt, &finishedAt, &total, &max, &sess.AutoSubmitted); err != nil {
			return nil, err
		}
		sess.Status = SessionStatus(status)
		sess.StartedAt = time.Unix(startedAt, 0).UTC()
		if finishedAt.Valid {
			t := time.Unix(finishedAt.Int64, 0).UTC()
			sess.FinishedAt = &t
		}
		if total.Valid {
			sess.TotalScore = &total.Float64
		}
		if max.Valid {
			sess.MaxScore = &max.Float64
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// UpdateSessionTotals persists a recomputed (total, max) pair and optionally
// a status change.
func (s *SQLStore) UpdateSessionTotals(ctx context.Context, id string, total, max float64, status SessionStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE exam_sessions SET total_score=$1, max_score=$2, status=$3 WHERE id=$4`,
		total, max, string(status), id)
	return err
}

// --- answers ---

func (s *SQLStore) UpsertAnswer(ctx context.Context, a *Answer) error {
	return upsertAnswer(ctx, s.db, a)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertAnswer(ctx context.Context, db execer, a *Answer) error {
	rj, err := json.Marshal(a.Response)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT INTO answers
		(session_id,question_id,response_json,is_correct,points_earned,max_points,
		 ai_score,ai_feedback,teacher_score,teacher_feedback,grading_status,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (session_id,question_id) DO UPDATE SET
			response_json=EXCLUDED.response_json, is_correct=EXCLUDED.is_correct,
			points_earned=EXCLUDED.points_earned, max_points=EXCLUDED.max_points,
			grading_status=EXCLUDED.grading_status, updated_at=EXCLUDED.updated_at`,
		a.SessionID, a.QuestionID, string(rj), nullBool(a.IsCorrect), a.PointsEarned, a.MaxPoints,
		nullFloat(a.AIScore), a.AIFeedback, nullFloat(a.TeacherScore), a.TeacherFeedback,
		string(a.GradingStatus), a.UpdatedAt.Unix())
	return err
}

func (s *SQLStore) GetAnswers(ctx context.Context, sessionID string) ([]*Answer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id,question_id,response_json,is_correct,points_earned,max_points,
		ai_score,ai_feedback,teacher_score,teacher_feedback,grading_status,updated_at
		FROM answers WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Answer
	for rows.Next() {
		var a Answer
		var rj, status string
		var isCorrect sql.NullBool
		var aiScore, teacherScore sql.NullFloat64
		var updatedAt int64
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &rj, &isCorrect, &a.PointsEarned, &a.MaxPoints,
			&aiScore, &a.AIFeedback, &teacherScore, &a.TeacherFeedback, &status, &updatedAt); err != nil {
			return nil, err
		}
		if isCorrect.Valid {
			a.IsCorrect = &isCorrect.Bool
		}
		if aiScore.Valid {
			a.AIScore = &aiScore.Float64
		}
		if teacherScore.Valid {
			a.TeacherScore = &teacherScore.Float64
		}
		a.GradingStatus = GradingStatus(status)
		a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		var resp grading.Response
		if err := json.Unmarshal([]byte(rj), &resp); err == nil {
			a.Response = resp
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UpdateAnswerAI records one AI grading outcome.
func (s *SQLStore) UpdateAnswerAI(ctx context.Context, sessionID, questionID string, score float64, feedback string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE answers SET
		ai_score=$1, ai_feedback=$2, points_earned=$1, grading_status='ai_graded', updated_at=$3
		WHERE session_id=$4 AND question_id=$5`,
		score, feedback, time.Now().Unix(), sessionID, questionID)
	return err
}

// UpdateAnswerTeacher records a teacher override. It never touches the
// session totals; recomputation is a separate, explicit step.
func (s *SQLStore) UpdateAnswerTeacher(ctx context.Context, sessionID, questionID string, score float64, feedback string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE answers SET
		teacher_score=$1, teacher_feedback=$2, grading_status='reviewed', updated_at=$3
		WHERE session_id=$4 AND question_id=$5`,
		score, feedback, time.Now().Unix(), sessionID, questionID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUnknownQuestion
	}
	return nil
}

// FinalizeSubmission writes the graded answers, the session transition and,
// when the final status is submitted, the grading outbox row in one
// transaction. A fully objective session passes StatusGraded and needs no
// outbox row.
func (s *SQLStore) FinalizeSubmission(ctx context.Context, sess *Session, answers []*Answer, total, max float64, auto bool, final SessionStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range answers {
		if err := upsertAnswer(ctx, tx, a); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE exam_sessions
		SET status=$1, finished_at=$2, total_score=$3, max_score=$4, auto_submitted=$5
		WHERE id=$6 AND status='in_progress'`,
		string(final), now.Unix(), total, max, auto, sess.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Lost the race with another submit; the first one wins.
		return ErrSessionClosed
	}
	if final == StatusSubmitted {
		if _, err := tx.ExecContext(ctx, `INSERT INTO grading_outbox (session_id,state,created_at)
			VALUES ($1,'pending',$2)`, sess.ID, now.Unix()); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	sess.Status = final
	sess.FinishedAt = &now
	sess.TotalScore = &total
	sess.MaxScore = &max
	sess.AutoSubmitted = auto
	return nil
}

// --- helpers ---

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
