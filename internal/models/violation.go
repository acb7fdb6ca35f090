package models

import "time"

const (
	ViolationObjectDetected  = "object_detected"
	ViolationMultiplePersons = "multiple_persons"
	ViolationTabChange       = "tab_change"
)

// Violation is an append-only ledger entry; rows are never updated or
// deleted, they are the audit trail behind the integrity score.
type Violation struct {
	ID            uint     `gorm:"primaryKey"`
	SessionID     string   `gorm:"type:uuid;index;not null"`
	ViolationType string   `gorm:"size:50;not null;index"`
	ObjectName    string   `gorm:"size:50"` // object_detected only
	Confidence    *float64 // object_detected only
	PersonCount   *int     // multiple_persons only
	ImagePath     string   `gorm:"size:255"` // evidence frame, if saved
	CreatedAt     time.Time
}
