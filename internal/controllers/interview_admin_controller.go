package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/interview_backend_v1/internal/models"
)

// InterviewAdminController covers scheduling and the reviewer-facing views
// over finished sessions (questions, answers, the violation ledger).
type InterviewAdminController struct {
	DB *gorm.DB
}

type scheduleInterviewRequest struct {
	CandidateID uint      `json:"candidate_id" binding:"required"`
	JobID       uint      `json:"job_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Type        string    `json:"type" binding:"required,oneof=technical behavioral both"`
}

func (ia *InterviewAdminController) Schedule(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)

	var req scheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.ScheduledAt.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interview must be scheduled in the future"})
		return
	}

	var cand models.Candidate
	if err := ia.DB.First(&cand, req.CandidateID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate_id"})
		return
	}
	var job models.JobRequirement
	if err := ia.DB.Where("active = ?", true).First(&job, req.JobID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	iv := models.Interview{
		CandidateIDRef: cand.ID,
		JobIDRef:       job.ID,
		ScheduledAt:    req.ScheduledAt,
		Type:           req.Type,
		Status:         models.InterviewScheduled,
		CreatedBy:      user.ID,
	}
	if err := ia.DB.Create(&iv).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": iv.ID, "status": iv.Status})
}

func (ia *InterviewAdminController) List(c *gin.Context) {
	base := ia.DB.Model(&models.Interview{})
	if status := c.Query("status"); status != "" {
		base = base.Where("status = ?", status)
	}
	var items []models.Interview
	if err := base.Order("scheduled_at DESC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (ia *InterviewAdminController) UpdateStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=Scheduled Completed Cancelled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var iv models.Interview
	if err := ia.DB.First(&iv, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "interview not found"})
		return
	}
	iv.Status = req.Status
	if err := ia.DB.Save(&iv).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": iv.ID, "status": iv.Status})
}

// SessionDetail returns the full audit view of one proctored session.
func (ia *InterviewAdminController) SessionDetail(c *gin.Context) {
	sessionID := c.Param("session_id")

	var sess models.InterviewSession
	if err := ia.DB.Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var questions []models.InterviewQuestion
	if err := ia.DB.Where("session_id = ?", sessionID).Order("question_number").Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var answers []models.InterviewAnswer
	if err := ia.DB.Where("session_id = ?", sessionID).Order("created_at").Find(&answers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var violations []models.Violation
	if err := ia.DB.Where("session_id = ?", sessionID).Order("created_at, id").Find(&violations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":    sess,
		"questions":  questions,
		"answers":    answers,
		"violations": violations,
	})
}

// Statistics aggregates counts for the dashboard overview.
func (ia *InterviewAdminController) Statistics(c *gin.Context) {
	var totalCandidates, totalJobs, totalInterviews, completedInterviews int64
	var totalViolations, tabChangeViolations int64

	counts := []struct {
		query *gorm.DB
		dst   *int64
	}{
		{ia.DB.Model(&models.Candidate{}), &totalCandidates},
		{ia.DB.Model(&models.JobRequirement{}).Where("active = ?", true), &totalJobs},
		{ia.DB.Model(&models.Interview{}), &totalInterviews},
		{ia.DB.Model(&models.Interview{}).Where("status = ?", models.InterviewCompleted), &completedInterviews},
		{ia.DB.Model(&models.Violation{}), &totalViolations},
		{ia.DB.Model(&models.Violation{}).Where("violation_type = ?", models.ViolationTabChange), &tabChangeViolations},
	}
	for _, cnt := range counts {
		if err := cnt.query.Count(cnt.dst).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_candidates":      totalCandidates,
		"total_jobs":            totalJobs,
		"total_interviews":      totalInterviews,
		"completed_interviews":  completedInterviews,
		"total_violations":      totalViolations,
		"tab_change_violations": tabChangeViolations,
		"object_violations":     totalViolations - tabChangeViolations,
	})
}
