package proctor

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/zaqqye/interview_backend_v1/internal/models"
)

const (
	RecommendProceed  = "Proceed to next round"
	RecommendEvaluate = "Requires further evaluation"

	passThreshold = 70.0
)

// Grader produces the technical and behavioral component scores. The
// shipped implementation is a random placeholder (answers are not graded
// yet); swapping in a real grading model must not touch integrity logic.
type Grader interface {
	TechnicalScore() int
	BehavioralScore() int
}

// RandomGrader returns uniform scores in [60,95] and [65,90].
type RandomGrader struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomGrader() *RandomGrader {
	return &RandomGrader{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *RandomGrader) TechnicalScore() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return 60 + g.rnd.Intn(36)
}

func (g *RandomGrader) BehavioralScore() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return 65 + g.rnd.Intn(26)
}

// Result is computed on demand from a session, its violation ledger and
// answer count; it is not stored as its own entity. Technical/behavioral
// components change between computations (random placeholder); integrity
// is deterministic given the ledger.
type Result struct {
	SessionID          string             `json:"session_id"`
	Duration           string             `json:"duration"`
	QuestionsAnswered  int64              `json:"questions_answered"`
	TechnicalScore     int                `json:"technical_score"`
	BehavioralScore    int                `json:"behavioral_score"`
	IntegrityScore     int                `json:"integrity_score"`
	OverallScore       float64            `json:"overall_score"`
	CheatingViolations int                `json:"cheating_violations"`
	TabChanges         int                `json:"tab_changes"`
	Violations         []models.Violation `json:"violations_detail"`
	Recommendation     string             `json:"recommendation"`
}

// IntegrityScore applies the penalty schedule: 10 points per visual
// violation, 5 per tab change, floored at zero.
func IntegrityScore(cheatingViolations, tabChanges int) int {
	score := 100 - cheatingViolations*10 - tabChanges*5
	if score < 0 {
		return 0
	}
	return score
}

// Score assembles the final result from the ledger and answer count.
func Score(grader Grader, sess models.InterviewSession, ledger []models.Violation, answered int64) Result {
	cheating := 0
	tabs := 0
	for _, v := range ledger {
		if v.ViolationType == models.ViolationTabChange {
			tabs++
		} else {
			cheating++
		}
	}

	technical := grader.TechnicalScore()
	behavioral := grader.BehavioralScore()
	integrity := IntegrityScore(cheating, tabs)
	overall := math.Round(float64(technical+behavioral+integrity)/3*100) / 100

	recommendation := RecommendEvaluate
	if overall >= passThreshold {
		recommendation = RecommendProceed
	}

	end := time.Now().UTC()
	if sess.EndTime != nil {
		end = *sess.EndTime
	}

	return Result{
		SessionID:          sess.SessionID,
		Duration:           end.Sub(sess.StartTime).String(),
		QuestionsAnswered:  answered,
		TechnicalScore:     technical,
		BehavioralScore:    behavioral,
		IntegrityScore:     integrity,
		OverallScore:       overall,
		CheatingViolations: cheating,
		TabChanges:         tabs,
		Violations:         ledger,
		Recommendation:     recommendation,
	}
}
