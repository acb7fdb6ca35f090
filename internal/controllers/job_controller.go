package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/interview_backend_v1/internal/models"
)

type JobController struct {
	DB *gorm.DB
}

type createJobRequest struct {
	Title       string `json:"title" binding:"required,min=3"`
	Department  string `json:"department" binding:"required,min=2"`
	Experience  string `json:"experience" binding:"required"`
	Skills      string `json:"skills" binding:"required,min=10"`
	Description string `json:"description" binding:"required,min=20"`
}

func (jc *JobController) Create(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := models.JobRequirement{
		Title:       req.Title,
		Department:  req.Department,
		Experience:  req.Experience,
		Skills:      req.Skills,
		Description: req.Description,
		Active:      true,
		CreatedBy:   user.ID,
	}
	if err := jc.DB.Create(&job).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": job.ID, "title": job.Title})
}

func (jc *JobController) List(c *gin.Context) {
	base := jc.DB.Model(&models.JobRequirement{})
	// default: only active postings
	if c.DefaultQuery("active", "true") != "all" {
		base = base.Where("active = ?", c.DefaultQuery("active", "true") == "true")
	}
	var items []models.JobRequirement
	if err := base.Order("created_at DESC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (jc *JobController) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var job models.JobRequirement
	if err := jc.DB.First(&job, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	var interviews []models.Interview
	if err := jc.DB.Where("job_id_ref = ?", job.ID).Order("scheduled_at DESC").Find(&interviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "interviews": interviews})
}

func (jc *JobController) SetActive(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var job models.JobRequirement
	if err := jc.DB.First(&job, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	job.Active = *req.Active
	if err := jc.DB.Save(&job).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": job.ID, "active": job.Active})
}
