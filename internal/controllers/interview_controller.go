package controllers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/interview_backend_v1/internal/proctor"
)

// InterviewController exposes the proctored session pipeline. Every route
// is keyed by the opaque session id; no storage row ids leak out.
type InterviewController struct {
	Proctor *proctor.Service
}

type startInterviewRequest struct {
	InterviewID uint `json:"interview_id"` // optional scheduled interview to attach
}

func (ic *InterviewController) Start(c *gin.Context) {
	var req startInterviewRequest
	// body is optional; without an interview_id the session is unlinked
	_ = c.ShouldBindJSON(&req)

	started, err := ic.Proctor.StartSession(c.Request.Context(), req.InterviewID)
	if err != nil {
		if errors.Is(err, proctor.ErrInterviewNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interview_id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start interview"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":          "success",
		"session_id":      started.SessionID,
		"question":        started.Question.Question,
		"question_type":   started.Question.QuestionType,
		"question_number": started.Question.QuestionNumber,
	})
}

type nextQuestionRequest struct {
	Answer string `json:"answer"`
}

func (ic *InterviewController) NextQuestion(c *gin.Context) {
	var req nextQuestionRequest
	// body is optional; an empty body means "advance without an answer"
	_ = c.ShouldBindJSON(&req)

	adv, err := ic.Proctor.NextQuestion(c.Request.Context(), c.Param("session_id"), req.Answer)
	if err != nil {
		abortProctorError(c, err)
		return
	}
	if adv.Completed {
		c.JSON(http.StatusOK, gin.H{
			"status":  "completed",
			"message": "Interview completed successfully!",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"question":        adv.Question.Question,
		"question_type":   adv.Question.QuestionType,
		"question_number": adv.Question.QuestionNumber,
	})
}

type submitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func (ic *InterviewController) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ic.Proctor.SubmitAnswer(c.Request.Context(), c.Param("session_id"), req.Answer); err != nil {
		abortProctorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type frameRequest struct {
	Image string `json:"image" binding:"required"` // base64, optionally a data URL
}

func (ic *InterviewController) IngestFrame(c *gin.Context) {
	var req frameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := req.Image
	// Browsers send "data:image/jpeg;base64,...."
	if idx := strings.Index(payload, ","); idx >= 0 {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image encoding"})
		return
	}

	report, err := ic.Proctor.IngestFrame(c.Request.Context(), c.Param("session_id"), raw)
	if err != nil {
		abortProctorError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ic *InterviewController) RecordTabChange(c *gin.Context) {
	total, err := ic.Proctor.RecordTabChange(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		abortProctorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "recorded",
		"total_tab_changes": total,
	})
}

func (ic *InterviewController) Results(c *gin.Context) {
	result, err := ic.Proctor.Finalize(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		abortProctorError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Terminate lets a supervisor cut an active session short.
func (ic *InterviewController) Terminate(c *gin.Context) {
	if err := ic.Proctor.Terminate(c.Request.Context(), c.Param("session_id")); err != nil {
		abortProctorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "terminated"})
}

func abortProctorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, proctor.ErrSessionNotFound), errors.Is(err, proctor.ErrSessionClosed):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, proctor.ErrInvalidFrame):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, proctor.ErrDetectorUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
