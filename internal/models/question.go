package models

import "time"

const (
	QuestionTechnical  = "technical"
	QuestionBehavioral = "behavioral"
)

type InterviewQuestion struct {
	ID             uint   `gorm:"primaryKey"`
	SessionID      string `gorm:"type:uuid;index;not null"`
	Question       string `gorm:"type:text;not null"`
	QuestionType   string `gorm:"size:20;not null"`
	QuestionNumber int    `gorm:"not null"`
	CreatedAt      time.Time
}
