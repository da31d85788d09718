package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/shlex"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	DocmarkAPIKey string

	// Scratch space for uploads, job outputs and engine temp files
	WorkDir string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// External converters
	SofficePath    string
	PDFACommand    string
	ConvertTimeout time.Duration

	// Merge defaults
	AddPageNumbers bool
}

// Load reads configuration from the environment. Variables in a .env file
// in the working directory are applied first without overriding the
// environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8091"),

		DocmarkAPIKey: os.Getenv("DOCMARK_API_KEY"),

		WorkDir: envOr("WORK_DIR", filepath.Join(os.TempDir(), "docmark")),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		SofficePath:    envOr("SOFFICE_PATH", "soffice"),
		PDFACommand:    os.Getenv("PDFA_COMMAND"),
		ConvertTimeout: envDuration("CONVERT_TIMEOUT", 2*time.Minute),

		AddPageNumbers: envBool("ADD_PAGE_NUMBERS", false),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ConvertTimeout <= 0 {
		cfg.ConvertTimeout = 2 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DocmarkAPIKey == "" {
		return fmt.Errorf("DOCMARK_API_KEY is required")
	}
	if c.PDFACommand != "" {
		if _, err := shlex.Split(c.PDFACommand); err != nil {
			return fmt.Errorf("PDFA_COMMAND: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
