package exam

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/Posologia-Edu/prova-facil/internal/blueprint"
	"github.com/Posologia-Edu/prova-facil/internal/grading"
)

// Gate and session errors. Each maps to a distinct user-facing message.
var (
	ErrInvalidCode      = errors.New("invalid access code")
	ErrNotOpen          = errors.New("exam has not opened yet")
	ErrClosed           = errors.New("exam window has closed")
	ErrAlreadyCompleted = errors.New("exam already completed")
	ErrPublicationGone  = errors.New("publication not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionClosed    = errors.New("session is no longer in progress")
	ErrTimeUp           = errors.New("time limit reached")
	ErrUnknownQuestion  = errors.New("question is not part of this exam")
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusSubmitted  SessionStatus = "submitted"
	StatusGraded     SessionStatus = "graded"
)

type GradingStatus string

const (
	GradingPending  GradingStatus = "pending"
	GradingGraded   GradingStatus = "graded"
	GradingAIGraded GradingStatus = "ai_graded"
	GradingReviewed GradingStatus = "reviewed"
)

// Publication is a time-boxed, access-coded offering of a blueprint. The
// blueprint is frozen into Snapshot at publish time, so later edits never
// change what students in flight are answering.
type Publication struct {
	ID               string               `json:"id"`
	ExamID           string               `json:"exam_id"`
	OwnerID          string               `json:"owner_id"`
	AccessCode       string               `json:"access_code"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	StartAt          *time.Time           `json:"start_at,omitempty"`
	EndAt            *time.Time           `json:"end_at,omitempty"`
	IsActive         bool                 `json:"is_active"`
	Snapshot         *blueprint.Blueprint `json:"snapshot,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Session is one student's attempt at a publication. At most one session per
// (publication, student).
type Session struct {
	ID            string        `json:"id"`
	PublicationID string        `json:"publication_id"`
	StudentID     string        `json:"student_id"`
	Status        SessionStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	TotalScore    *float64      `json:"total_score,omitempty"`
	MaxScore      *float64      `json:"max_score,omitempty"`
	AutoSubmitted bool          `json:"auto_submitted,omitempty"`
}

// Remaining computes the seconds left at now. Time never pauses: it is always
// derived from started_at, so a reload mid-session resumes the same clock.
func (s *Session) Remaining(limit time.Duration, now time.Time) time.Duration {
	rem := limit - now.Sub(s.StartedAt)
	if rem < 0 {
		return 0
	}
	return rem
}

// Answer is one student's response to one question, keyed by
// (session, question) and upserted as the student works.
type Answer struct {
	SessionID       string           `json:"session_id"`
	QuestionID      string           `json:"question_id"` // bank item id
	Response        grading.Response `json:"response"`
	IsCorrect       *bool            `json:"is_correct,omitempty"`
	PointsEarned    float64          `json:"points_earned"`
	MaxPoints       float64          `json:"max_points"`
	AIScore         *float64         `json:"ai_score,omitempty"`
	AIFeedback      string           `json:"ai_feedback,omitempty"`
	TeacherScore    *float64         `json:"teacher_score,omitempty"`
	TeacherFeedback string           `json:"teacher_feedback,omitempty"`
	GradingStatus   GradingStatus    `json:"grading_status"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (a *Answer) Scored() grading.Scored {
	return grading.Scored{
		PointsEarned: a.PointsEarned,
		MaxPoints:    a.MaxPoints,
		AIScore:      a.AIScore,
		TeacherScore: a.TeacherScore,
	}
}

// accessCodeAlphabet avoids look-alike characters on printed handouts.
const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const accessCodeLen = 6

// NewAccessCode returns a short random code. Collisions are caught by the
// unique column constraint and retried by the caller.
func NewAccessCode() string {
	buf := make([]byte, accessCodeLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	for i, b := range buf {
		buf[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(buf)
}
