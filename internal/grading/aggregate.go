package grading

// Scored is the minimal view of a stored answer needed for totals.
type Scored struct {
	PointsEarned float64
	MaxPoints    float64
	AIScore      *float64
	TeacherScore *float64
}

// Effective is the score that counts for one answer: a teacher's score always
// wins, then the AI score, then the rule-based points.
func Effective(s Scored) float64 {
	if s.TeacherScore != nil {
		return *s.TeacherScore
	}
	if s.AIScore != nil {
		return *s.AIScore
	}
	return s.PointsEarned
}

// Aggregate reduces a session's answers to (total, max). Max is independent
// of grading status: every question's points count toward it.
func Aggregate(answers []Scored) (total, max float64) {
	for _, a := range answers {
		total += Effective(a)
		max += a.MaxPoints
	}
	return total, max
}

// Clamp bounds an AI-proposed score to [0, max].
func Clamp(score, max float64) float64 {
	if score < 0 {
		return 0
	}
	if score > max {
		return max
	}
	return score
}
