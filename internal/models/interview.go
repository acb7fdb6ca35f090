package models

import "time"

const (
	InterviewScheduled = "Scheduled"
	InterviewCompleted = "Completed"
	InterviewCancelled = "Cancelled"
)

// Interview is the scheduled appointment; once taken it carries a pointer
// to the proctored session that produced its scores.
type Interview struct {
	ID             uint      `gorm:"primaryKey"`
	CandidateIDRef uint      `gorm:"index;not null"`
	JobIDRef       uint      `gorm:"index;not null"`
	ScheduledAt    time.Time `gorm:"not null"`
	Type           string    `gorm:"size:20;not null"` // technical, behavioral, both
	Status         string    `gorm:"size:20;index"`
	CreatedBy      uint

	SessionID       *string `gorm:"type:uuid;uniqueIndex"`
	TechnicalScore  *int
	BehavioralScore *int
	IntegrityScore  *int
	OverallScore    *float64
	Recommendation  string `gorm:"size:100"`
	CompletedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
