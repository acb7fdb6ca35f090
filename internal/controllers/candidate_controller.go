package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/zaqqye/interview_backend_v1/internal/models"
)

type CandidateController struct {
	DB *gorm.DB
}

type createCandidateRequest struct {
	FullName string `json:"full_name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,min=10"`
	Position string `json:"position" binding:"required,min=2"`
}

func (cc *CandidateController) Create(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)

	var req createCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cand := models.Candidate{
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Position:  req.Position,
		CreatedBy: user.ID,
	}
	if err := cc.DB.Create(&cand).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "a candidate with this email already exists"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": cand.ID, "email": cand.Email})
}

func (cc *CandidateController) List(c *gin.Context) {
	all := strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1"
	limit := 20
	page := 1
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	base := cc.DB.Model(&models.Candidate{})
	if qText := strings.TrimSpace(c.Query("q")); qText != "" {
		like := "%" + qText + "%"
		base = base.Where("full_name ILIKE ? OR email ILIKE ? OR position ILIKE ?", like, like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	listQ := base.Order("created_at DESC")
	if !all {
		listQ = listQ.Offset((page - 1) * limit).Limit(limit)
	}
	var items []models.Candidate
	if err := listQ.Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	meta := gin.H{"total": total, "all": all}
	if !all {
		meta["limit"] = limit
		meta["page"] = page
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "meta": meta})
}

func (cc *CandidateController) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var cand models.Candidate
	if err := cc.DB.First(&cand, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
		return
	}
	var interviews []models.Interview
	if err := cc.DB.Where("candidate_id_ref = ?", cand.ID).Order("scheduled_at DESC").Find(&interviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidate": cand, "interviews": interviews})
}
