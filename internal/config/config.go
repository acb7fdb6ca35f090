package config

import (
	"os"
)

type Config struct {
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret    string
	JWTExpiresIn string // minutes

	AdminEmail    string
	AdminPassword string
	AdminFullName string
	// Sample candidate account seeded for demos/manual testing.
	CandidateEmail    string
	CandidatePassword string

	// Proctoring pipeline
	DetectorURL            string // empty disables frame analysis
	DetectorTimeoutSeconds string
	EvidenceDir            string
	FrameSampleRate        string // process 1 of every N frames
	FrameQueueSize         string // per-session pending frame buffer
	InterviewLength        string // questions per session
	SessionIdleTTLMinutes  string // abandoned sessions terminated after this
}

func Load() *Config {
	return &Config{
		Port:       getenv("PORT", "8080"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "interview_db"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		JWTSecret:    getenv("JWT_SECRET", "supersecret_change_me"),
		JWTExpiresIn: getenv("JWT_EXPIRES_IN", "60"),

		AdminEmail:        getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:     getenv("ADMIN_PASSWORD", "admin123"),
		AdminFullName:     getenv("ADMIN_FULL_NAME", "Administrator"),
		CandidateEmail:    getenv("CANDIDATE_EMAIL", "candidate@example.com"),
		CandidatePassword: getenv("CANDIDATE_PASSWORD", "candidate123"),

		DetectorURL:            getenv("DETECTOR_URL", ""),
		DetectorTimeoutSeconds: getenv("DETECTOR_TIMEOUT_SECONDS", "10"),
		EvidenceDir:            getenv("EVIDENCE_DIR", "frames"),
		FrameSampleRate:        getenv("FRAME_SAMPLE_RATE", "2"),
		FrameQueueSize:         getenv("FRAME_QUEUE_SIZE", "4"),
		InterviewLength:        getenv("INTERVIEW_LENGTH", "5"),
		SessionIdleTTLMinutes:  getenv("SESSION_IDLE_TTL_MINUTES", "30"),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
