package config

import (
	"strings"
	"testing"
	"time"

	"github.com/example/signature-verify/internal/signature"
)

// clearEnv pins every variable Load reads to empty so ambient values from
// the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"LOG_LEVEL", "HOST", "PORT", "SHUTDOWN_TIMEOUT", "MAX_REQUEST_BODY_BYTES",
		"DATABASE_DSN", "REDIS_ADDR",
		"CLEANING_MODEL_URL", "MATCHING_MODEL_URL", "MODEL_ERROR_BYPASS_FLAG",
		"MODEL_CONNECT_TIMEOUT", "MODEL_REQUEST_TIMEOUT", "MATCH_THRESHOLD",
		"CLEAN_MAX_PARALLEL", "JWT_SECRET", "JWT_AUDIENCE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level, got %q", cfg.LogLevel)
	}
	if addr := cfg.Address(); addr != "0.0.0.0:8080" {
		t.Errorf("expected default address 0.0.0.0:8080, got %q", addr)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected 15s shutdown timeout, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MaxBodyBytes != 20*1024*1024 {
		t.Errorf("expected 20MiB body limit, got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Models.Bypass {
		t.Error("expected bypass disabled by default")
	}
	if cfg.Models.MatchThreshold != signature.DefaultMatchThreshold {
		t.Errorf("expected default threshold, got %g", cfg.Models.MatchThreshold)
	}
	if cfg.Models.ConnectTimeout != 5*time.Second || cfg.Models.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected model timeouts: %s / %s", cfg.Models.ConnectTimeout, cfg.Models.RequestTimeout)
	}
	if cfg.MaxParallel != 4 {
		t.Errorf("expected 4 parallel cleans, got %d", cfg.MaxParallel)
	}
	if cfg.Auth.JWTSecret != "dev-secret" {
		t.Errorf("expected dev secret fallback, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Models.CleanerURL != "http://cleaning-model:9090" {
		t.Errorf("unexpected cleaner URL %q", cfg.Models.CleanerURL)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9999")
	t.Setenv("MODEL_ERROR_BYPASS_FLAG", "true")
	t.Setenv("MATCH_THRESHOLD", "0.75")
	t.Setenv("CLEAN_MAX_PARALLEL", "2")
	t.Setenv("MODEL_REQUEST_TIMEOUT", "10s")
	t.Setenv("JWT_AUDIENCE", "signature-api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if addr := cfg.Address(); addr != "127.0.0.1:9999" {
		t.Errorf("expected 127.0.0.1:9999, got %q", addr)
	}
	if !cfg.Models.Bypass {
		t.Error("expected bypass enabled")
	}
	if cfg.Models.MatchThreshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %g", cfg.Models.MatchThreshold)
	}
	if cfg.MaxParallel != 2 {
		t.Errorf("expected 2 parallel cleans, got %d", cfg.MaxParallel)
	}
	if cfg.Models.RequestTimeout != 10*time.Second {
		t.Errorf("expected 10s request timeout, got %s", cfg.Models.RequestTimeout)
	}
	if cfg.Auth.JWTAudience != "signature-api" {
		t.Errorf("expected audience override, got %q", cfg.Auth.JWTAudience)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a non-numeric port")
	} else if !strings.Contains(err.Error(), "PORT") {
		t.Fatalf("expected PORT in error, got %v", err)
	}
}

func TestLoadRejectsThresholdOutOfRange(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATCH_THRESHOLD", "1.5")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a threshold above 1")
	} else if !strings.Contains(err.Error(), "MATCH_THRESHOLD") {
		t.Fatalf("expected MATCH_THRESHOLD in error, got %v", err)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLEAN_MAX_PARALLEL", "lots")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MaxParallel != 4 {
		t.Errorf("expected fallback of 4, got %d", cfg.MaxParallel)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected fallback of 15s, got %s", cfg.Server.ShutdownTimeout)
	}
}
