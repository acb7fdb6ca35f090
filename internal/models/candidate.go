package models

import "time"

type Candidate struct {
	ID        uint   `gorm:"primaryKey"`
	FullName  string `gorm:"size:100;not null"`
	Email     string `gorm:"size:120;uniqueIndex;not null"`
	Phone     string `gorm:"size:20;not null"`
	Position  string `gorm:"size:100;not null"`
	CreatedBy uint   `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
