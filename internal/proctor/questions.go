package proctor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/zaqqye/interview_backend_v1/internal/models"
)

var defaultTechnical = []string{
	"What is the difference between Python lists and tuples?",
	"Explain the concept of Object-Oriented Programming.",
	"What is a database index and why is it important?",
	"Describe the difference between GET and POST HTTP methods.",
	"What is the time complexity of binary search?",
	"Explain what is meant by 'Big O' notation.",
	"What is the difference between SQL and NoSQL databases?",
	"Describe the concept of machine learning.",
	"What is version control and why is it important?",
	"Explain the difference between frontend and backend development.",
}

var defaultBehavioral = []string{
	"Tell me about a challenging project you worked on.",
	"How do you handle tight deadlines?",
	"Describe a time when you had to work with a difficult team member.",
	"What motivates you in your work?",
	"How do you stay updated with new technologies?",
	"Tell me about a mistake you made and how you handled it.",
	"Describe your ideal work environment.",
	"How do you prioritize tasks when everything seems urgent?",
	"Tell me about a time you had to learn something new quickly.",
	"What are your long-term career goals?",
}

// QuestionBank draws prompts for new questions. Category and prompt are
// both picked uniformly at random, independent of earlier draws, so
// repeats within a session are possible.
type QuestionBank struct {
	technical  []string
	behavioral []string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank() *QuestionBank {
	return NewQuestionBankFrom(defaultTechnical, defaultBehavioral)
}

func NewQuestionBankFrom(technical, behavioral []string) *QuestionBank {
	return &QuestionBank{
		technical:  technical,
		behavioral: behavioral,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Draw produces the question with the given 1-based number for a session.
func (b *QuestionBank) Draw(sessionID string, number int) models.InterviewQuestion {
	b.mu.Lock()
	defer b.mu.Unlock()

	qType := models.QuestionTechnical
	pool := b.technical
	if b.rnd.Intn(2) == 1 {
		qType = models.QuestionBehavioral
		pool = b.behavioral
	}
	return models.InterviewQuestion{
		SessionID:      sessionID,
		Question:       pool[b.rnd.Intn(len(pool))],
		QuestionType:   qType,
		QuestionNumber: number,
	}
}
