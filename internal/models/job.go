package models

import "time"

type JobRequirement struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"size:100;not null"`
	Department  string `gorm:"size:100;not null"`
	Experience  string `gorm:"size:50;not null"`
	Skills      string `gorm:"type:text;not null"`
	Description string `gorm:"type:text;not null"`
	Active      bool   `gorm:"index"`
	CreatedBy   uint   `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
