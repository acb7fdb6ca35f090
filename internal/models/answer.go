package models

import "time"

// InterviewAnswer holds at most one row per question; resubmissions
// overwrite the previous text (last-write-wins).
type InterviewAnswer struct {
	ID            uint   `gorm:"primaryKey"`
	SessionID     string `gorm:"type:uuid;index;not null"`
	QuestionIDRef uint   `gorm:"uniqueIndex;not null"`
	Answer        string `gorm:"type:text;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
