package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/interview_backend_v1/internal/config"
	"github.com/zaqqye/interview_backend_v1/internal/database"
	"github.com/zaqqye/interview_backend_v1/internal/detection"
	"github.com/zaqqye/interview_backend_v1/internal/evidence"
	"github.com/zaqqye/interview_backend_v1/internal/proctor"
	"github.com/zaqqye/interview_backend_v1/internal/routes"
	"github.com/zaqqye/interview_backend_v1/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	if err := database.SeedUsers(db, cfg); err != nil {
		log.Fatalf("user seed failed: %v", err)
	}

	var detector detection.Detector
	if cfg.DetectorURL != "" {
		timeout := time.Duration(atoiOr(cfg.DetectorTimeoutSeconds, 10)) * time.Second
		detector = detection.NewRemote(cfg.DetectorURL, timeout)
	} else {
		log.Println("DETECTOR_URL not set; frame analysis disabled")
	}

	hub := ws.NewProctorHub()
	go hub.Run()

	svc := proctor.New(proctor.Deps{
		DB:       db,
		Detector: detector,
		Evidence: evidence.NewStore(cfg.EvidenceDir),
		Feed:     hub,
	}, proctor.Options{
		InterviewLength: atoiOr(cfg.InterviewLength, 5),
		FrameSampleRate: int64(atoiOr(cfg.FrameSampleRate, 2)),
		FrameQueueSize:  atoiOr(cfg.FrameQueueSize, 4),
		IdleTTL:         time.Duration(atoiOr(cfg.SessionIdleTTLMinutes, 30)) * time.Minute,
	})
	defer svc.Close()

	r := gin.Default()
	routes.Register(r, db, cfg, svc, hub)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Println("server exited with error:", err)
		os.Exit(1)
	}
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
