package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "WORKER_COUNT", "MAX_QUEUE_SIZE", "JOB_TTL", "ADD_PAGE_NUMBERS", "SOFFICE_PATH"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8091" {
		t.Errorf("expected default port 8091, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.JobTTL)
	}
	if cfg.SofficePath != "soffice" {
		t.Errorf("expected soffice, got %q", cfg.SofficePath)
	}
	if cfg.WorkDir == "" {
		t.Error("expected a default work dir")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("JOB_TTL", "15m")
	t.Setenv("ADD_PAGE_NUMBERS", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 15*time.Minute {
		t.Errorf("expected 15m TTL, got %v", cfg.JobTTL)
	}
	if !cfg.AddPageNumbers {
		t.Error("expected AddPageNumbers")
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("expected 1024 upload bytes, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("MAX_QUEUE_SIZE", "lots")
	t.Setenv("CONVERT_TIMEOUT", "soon")

	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Errorf("expected clamped worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("expected default queue size, got %d", cfg.MaxQueueSize)
	}
	if cfg.ConvertTimeout != 2*time.Minute {
		t.Errorf("expected default timeout, got %v", cfg.ConvertTimeout)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Error("expected missing api key error")
	}
	if err := (Config{DocmarkAPIKey: "k"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := Config{DocmarkAPIKey: "k", PDFACommand: `gs "-o {out}`}
	if err := bad.Validate(); err == nil {
		t.Error("expected unterminated quote in PDFA_COMMAND to fail")
	}
}
