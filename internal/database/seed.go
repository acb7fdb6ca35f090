package database

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaqqye/interview_backend_v1/internal/config"
	"github.com/zaqqye/interview_backend_v1/internal/models"
	"github.com/zaqqye/interview_backend_v1/internal/utils"
)

// SeedUsers ensures the admin account and a sample candidate account exist.
func SeedUsers(db *gorm.DB, cfg *config.Config) error {
	if err := seedUser(db, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminFullName, "admin"); err != nil {
		return err
	}
	return seedUser(db, cfg.CandidateEmail, cfg.CandidatePassword, "Sample Candidate", "candidate")
}

func seedUser(db *gorm.DB, email, password, fullName, role string) error {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user := models.User{
		UserID:   uuid.NewString(),
		FullName: fullName,
		Email:    email,
		Password: hashed,
		Role:     role,
		Active:   true,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	log.Printf("seeded %s user %s", role, email)
	return nil
}
