package models

import "time"

const (
	SessionActive     = "active"
	SessionCompleted  = "completed"
	SessionTerminated = "terminated"
)

// InterviewSession is one candidate's assessment attempt. Questions,
// answers and violations hang off SessionID and share its lifetime.
type InterviewSession struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"type:uuid;uniqueIndex;not null"`
	Status    string `gorm:"size:20;index;default:'active'"`
	StartTime time.Time
	EndTime   *time.Time

	// CurrentQuestionIndex counts questions already advanced past; the
	// question on screen is always number CurrentQuestionIndex+1.
	CurrentQuestionIndex int
	TabChanges           int
	FrameCounter         int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
