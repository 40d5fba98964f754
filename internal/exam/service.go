package exam

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Posologia-Edu/prova-facil/internal/bank"
	"github.com/Posologia-Edu/prova-facil/internal/blueprint"
	"github.com/Posologia-Edu/prova-facil/internal/grading"
)

var ErrEmptyExam = errors.New("exam has no questions")

// Event is a change notification for the monitoring stream. The payload
// deliberately carries no diff: consumers re-fetch current state.
type Event struct {
	Type          string `json:"type"` // session_started|answer_saved|session_submitted|session_graded
	PublicationID string `json:"publication_id"`
	SessionID     string `json:"session_id"`
}

// Events receives session change notifications. Delivery is best-effort.
type Events interface {
	Publish(ctx context.Context, ev Event)
}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, Event) {}

// NopEvents discards all notifications.
func NopEvents() Events { return nopEvents{} }

// Service orchestrates the publication gate, the session lifecycle and
// scoring on top of the SQL store.
type Service struct {
	store  *SQLStore
	bank   bank.Store
	grader grading.Grader
	events Events
	log    *zap.Logger
}

func NewService(store *SQLStore, bankStore bank.Store, grader grading.Grader, events Events, log *zap.Logger) *Service {
	if events == nil {
		events = NopEvents()
	}
	return &Service{store: store, bank: bankStore, grader: grader, events: events, log: log}
}

func (s *Service) Store() *SQLStore { return s.store }

type PublishOpts struct {
	TimeLimitMinutes int
	StartAt          *time.Time
	EndAt            *time.Time
}

// Publish freezes the blueprint into a new publication with a fresh access
// code. Post-publication edits to the blueprint do not reach students.
func (s *Service) Publish(ctx context.Context, bp *blueprint.Blueprint, ownerID string, opts PublishOpts) (*Publication, error) {
	if bp.QuestionCount() == 0 {
		return nil, ErrEmptyExam
	}
	if opts.TimeLimitMinutes <= 0 {
		return nil, errors.New("time limit must be positive")
	}
	p := &Publication{
		ExamID:           bp.ID,
		OwnerID:          ownerID,
		TimeLimitMinutes: opts.TimeLimitMinutes,
		StartAt:          opts.StartAt,
		EndAt:            opts.EndAt,
		IsActive:         true,
		Snapshot:         bp,
	}
	if err := s.store.CreatePublication(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Enter is the publication gate. Checks run in order: code validity and
// active flag, window start, window end, then prior sessions. A completed
// session is terminal; an in-progress one is resumed (and force-submitted
// right away when its time already ran out).
func (s *Service) Enter(ctx context.Context, accessCode, studentID string) (*Session, *Publication, error) {
	code := strings.ToUpper(strings.TrimSpace(accessCode))
	if code == "" {
		return nil, nil, ErrInvalidCode
	}
	pub, err := s.store.GetPublicationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrPublicationGone) {
			return nil, nil, ErrInvalidCode
		}
		return nil, nil, err
	}
	if !pub.IsActive {
		return nil, nil, ErrInvalidCode
	}
	now := time.Now().UTC()
	if pub.StartAt != nil && now.Before(*pub.StartAt) {
		return nil, nil, ErrNotOpen
	}
	if pub.EndAt != nil && now.After(*pub.EndAt) {
		return nil, nil, ErrClosed
	}

	sess, err := s.store.GetSessionByStudent(ctx, pub.ID, studentID)
	switch {
	case err == nil:
		if sess.Status != StatusInProgress {
			return sess, pub, ErrAlreadyCompleted
		}
		if sess.Remaining(s.limit(pub), now) <= 0 {
			sess, err = s.Submit(ctx, sess.ID, true)
			if err != nil {
				return nil, nil, err
			}
		}
		return sess, pub, nil
	case errors.Is(err, ErrSessionNotFound):
		sess = &Session{
			PublicationID: pub.ID,
			StudentID:     studentID,
			Status:        StatusInProgress,
			StartedAt:     now,
		}
		if err := s.store.CreateSession(ctx, sess); err != nil {
			if isUniqueViolation(err) {
				// Raced another tab; fall back to the surviving session.
				return s.Enter(ctx, accessCode, studentID)
			}
			return nil, nil, err
		}
		s.events.Publish(ctx, Event{Type: "session_started", PublicationID: pub.ID, SessionID: sess.ID})
		return sess, pub, nil
	default:
		return nil, nil, err
	}
}

// Load fetches a session for the owning student, enforcing the timeout
// before anything else: an expired in-progress session is submitted before
// any question is served.
func (s *Service) Load(ctx context.Context, sessionID, studentID string) (*Session, *Publication, time.Duration, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, 0, err
	}
	if studentID != "" && sess.StudentID != studentID {
		return nil, nil, 0, ErrSessionNotFound
	}
	pub, err := s.store.GetPublication(ctx, sess.PublicationID)
	if err != nil {
		return nil, nil, 0, err
	}
	now := time.Now().UTC()
	remaining := sess.Remaining(s.limit(pub), now)
	if sess.Status == StatusInProgress && remaining <= 0 {
		sess, err = s.Submit(ctx, sess.ID, true)
		if err != nil {
			return nil, nil, 0, err
		}
		remaining = 0
	}
	return sess, pub, remaining, nil
}

// SaveAnswer upserts one response while the clock still runs. Grading only
// happens at submission.
func (s *Service) SaveAnswer(ctx context.Context, sessionID, studentID, questionID string, resp grading.Response) error {
	sess, pub, remaining, err := s.Load(ctx, sessionID, studentID)
	if err != nil {
		return err
	}
	if sess.Status != StatusInProgress {
		return ErrSessionClosed
	}
	if remaining <= 0 {
		return ErrTimeUp
	}
	ref, ok := pub.Snapshot.FindRef(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	a := &Answer{
		SessionID:     sessionID,
		QuestionID:    questionID,
		Response:      resp,
		MaxPoints:     ref.Points,
		GradingStatus: GradingPending,
	}
	if err := s.store.UpsertAnswer(ctx, a); err != nil {
		return err
	}
	s.events.Publish(ctx, Event{Type: "answer_saved", PublicationID: pub.ID, SessionID: sessionID})
	return nil
}

// Unanswered counts questions without a non-empty response, shown in the
// manual submission confirmation.
func (s *Service) Unanswered(ctx context.Context, sessionID string) (int, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	pub, err := s.store.GetPublication(ctx, sess.PublicationID)
	if err != nil {
		return 0, err
	}
	answers, err := s.store.GetAnswers(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	answered := map[string]bool{}
	for _, a := range answers {
		if !a.Response.Empty() {
			answered[a.QuestionID] = true
		}
	}
	n := 0
	for _, id := range pub.Snapshot.BankItemIDs() {
		if !answered[id] {
			n++
		}
	}
	return n, nil
}

// Submit finalizes a session: objective answers are graded, unanswered
// questions become empty answers, subjective answers stay pending and a
// grading job is enqueued. Calling Submit on an already-submitted session is
// a no-op returning the current state.
func (s *Service) Submit(ctx context.Context, sessionID string, auto bool) (*Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusInProgress {
		return sess, nil
	}
	pub, err := s.store.GetPublication(ctx, sess.PublicationID)
	if err != nil {
		return nil, err
	}
	items, err := s.bank.GetMany(ctx, pub.Snapshot.BankItemIDs())
	if err != nil {
		return nil, err
	}
	stored, err := s.store.GetAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	responses := make(map[string]grading.Response, len(stored))
	for _, a := range stored {
		responses[a.QuestionID] = a.Response
	}

	var final []*Answer
	total := 0.0
	hasSubjective := false
	for _, sec := range pub.Snapshot.Sections {
		for _, ref := range sec.Questions {
			a := &Answer{
				SessionID:     sessionID,
				QuestionID:    ref.BankItemID,
				Response:      responses[ref.BankItemID],
				MaxPoints:     ref.Points,
				GradingStatus: GradingPending,
			}
			item, ok := items[ref.BankItemID]
			if !ok {
				// Bank item purged after publication; leave for teacher review.
				s.log.Warn("bank item missing at submission",
					zap.String("session", sessionID), zap.String("question", ref.BankItemID))
				hasSubjective = true
				final = append(final, a)
				continue
			}
			if item.Type.Objective() {
				res := s.grader.Grade(item.Content, ref.Points, a.Response)
				a.IsCorrect = res.IsCorrect
				a.PointsEarned = res.PointsEarned
				a.GradingStatus = GradingGraded
				total += res.PointsEarned
			} else {
				hasSubjective = true
			}
			final = append(final, a)
		}
	}
	max := pub.Snapshot.MaxScore()

	// A session with no subjective answers is final the moment it is
	// submitted; everything else waits for the grading batch.
	status := StatusGraded
	if hasSubjective {
		status = StatusSubmitted
	}
	if err := s.store.FinalizeSubmission(ctx, sess, final, total, max, auto, status); err != nil {
		if errors.Is(err, ErrSessionClosed) {
			// Another submit won the race; report its result.
			return s.store.GetSession(ctx, sessionID)
		}
		return nil, err
	}
	s.events.Publish(ctx, Event{Type: "session_submitted", PublicationID: pub.ID, SessionID: sessionID})
	return sess, nil
}

// TeacherGrade records a manual score override. The override wins over the
// AI score in every total computed afterwards, but does not itself trigger
// recomputation of the stored session total.
func (s *Service) TeacherGrade(ctx context.Context, sessionID, questionID string, score float64, feedback string) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status == StatusInProgress {
		return ErrSessionClosed
	}
	pub, err := s.store.GetPublication(ctx, sess.PublicationID)
	if err != nil {
		return err
	}
	ref, ok := pub.Snapshot.FindRef(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	return s.store.UpdateAnswerTeacher(ctx, sessionID, questionID, grading.Clamp(score, ref.Points), feedback)
}

// Recompute re-aggregates the stored answers into the session total. This is
// the explicit companion to TeacherGrade.
func (s *Service) Recompute(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusInProgress {
		return nil, ErrSessionClosed
	}
	answers, err := s.store.GetAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	scored := make([]grading.Scored, len(answers))
	for i, a := range answers {
		scored[i] = a.Scored()
	}
	total, max := grading.Aggregate(scored)
	if err := s.store.UpdateSessionTotals(ctx, sessionID, total, max, sess.Status); err != nil {
		return nil, err
	}
	sess.TotalScore = &total
	sess.MaxScore = &max
	return sess, nil
}

func (s *Service) limit(pub *Publication) time.Duration {
	return time.Duration(pub.TimeLimitMinutes) * time.Minute
}
