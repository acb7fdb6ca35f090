package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/interview_backend_v1/internal/config"
	"github.com/zaqqye/interview_backend_v1/internal/controllers"
	"github.com/zaqqye/interview_backend_v1/internal/middleware"
	"github.com/zaqqye/interview_backend_v1/internal/proctor"
	"github.com/zaqqye/interview_backend_v1/internal/ws"
)

func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, svc *proctor.Service, hub *ws.ProctorHub) {
	expiresMins, err := time.ParseDuration(cfg.JWTExpiresIn + "m")
	if err != nil || expiresMins == 0 {
		expiresMins = 60 * time.Minute
	}
	authCtrl := &controllers.AuthController{DB: db, JWTSecret: cfg.JWTSecret, ExpiresIn: expiresMins}
	interviewCtrl := &controllers.InterviewController{Proctor: svc}

	// Public
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authCtrl.Login)
	}

	// Protected
	authMW := middleware.AuthMiddleware(db, middleware.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		JWTExpiresIn: expiresMins,
	})
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/logout", authCtrl.Logout)

		// Candidate-facing interview pipeline (admin may drive it too)
		interview := api.Group("/interview", middleware.RequireRoles("candidate", "admin"))
		{
			interview.POST("/start", interviewCtrl.Start)
			interview.POST("/sessions/:session_id/next", interviewCtrl.NextQuestion)
			interview.POST("/sessions/:session_id/answer", interviewCtrl.SubmitAnswer)
			interview.POST("/sessions/:session_id/frame", interviewCtrl.IngestFrame)
			interview.POST("/sessions/:session_id/tab-change", interviewCtrl.RecordTabChange)
			interview.GET("/sessions/:session_id/results", interviewCtrl.Results)
		}

		// Admin-only
		admin := api.Group("/admin", middleware.RequireRoles("admin"))
		{
			admin.POST("/users", authCtrl.Register)

			candCtrl := &controllers.CandidateController{DB: db}
			admin.GET("/candidates", candCtrl.List)
			admin.POST("/candidates", candCtrl.Create)
			admin.GET("/candidates/:id", candCtrl.Get)

			jobCtrl := &controllers.JobController{DB: db}
			admin.GET("/jobs", jobCtrl.List)
			admin.POST("/jobs", jobCtrl.Create)
			admin.GET("/jobs/:id", jobCtrl.Get)
			admin.PUT("/jobs/:id/active", jobCtrl.SetActive)

			ivCtrl := &controllers.InterviewAdminController{DB: db}
			admin.GET("/interviews", ivCtrl.List)
			admin.POST("/interviews", ivCtrl.Schedule)
			admin.PUT("/interviews/:id/status", ivCtrl.UpdateStatus)
			admin.GET("/sessions/:session_id", ivCtrl.SessionDetail)
			admin.POST("/sessions/:session_id/terminate", interviewCtrl.Terminate)
			admin.GET("/statistics", ivCtrl.Statistics)

			// Live proctoring feed
			admin.GET("/ws/proctor", ws.ProctorFeedHandler(hub))
		}
	}
}
