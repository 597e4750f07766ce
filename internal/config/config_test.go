package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	d := LoadDefaults()

	if d.Matching.Threshold != 0.5 {
		t.Errorf("expected default threshold 0.5, got %v", d.Matching.Threshold)
	}
	if d.Embedding.Dim != 512 {
		t.Errorf("expected default embedding dim 512, got %d", d.Embedding.Dim)
	}
	if d.Import.MaxRows != 500 {
		t.Errorf("expected default max rows 500, got %d", d.Import.MaxRows)
	}
	if d.Import.PasswordLength != 14 {
		t.Errorf("expected default password length 14, got %d", d.Import.PasswordLength)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/veriface")
	t.Setenv("MATCH_THRESHOLD", "0.65")
	t.Setenv("IMPORT_MAX_ROWS", "100")
	t.Setenv("EMBEDDING_URL", "http://embedder:9000")

	cfg := Load()

	if cfg.Database.URL != "postgres://localhost/veriface" {
		t.Errorf("unexpected database URL %q", cfg.Database.URL)
	}
	if cfg.Matching.Threshold != 0.65 {
		t.Errorf("expected threshold 0.65, got %v", cfg.Matching.Threshold)
	}
	if cfg.Import.MaxRows != 100 {
		t.Errorf("expected max rows 100, got %d", cfg.Import.MaxRows)
	}
	if cfg.Embedding.URL != "http://embedder:9000" {
		t.Errorf("unexpected embedding URL %q", cfg.Embedding.URL)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "1.5")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "-3")
	t.Setenv("EMBEDDING_DIM", "abc")

	cfg := Load()

	if cfg.Matching.Threshold != 0.5 {
		t.Errorf("expected out-of-range threshold to fall back to 0.5, got %v", cfg.Matching.Threshold)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected fallback 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Embedding.Dim != 512 {
		t.Errorf("expected fallback 512, got %d", cfg.Embedding.Dim)
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"unset", "", 7},
		{"valid", "42", 42},
		{"zero", "0", 7},
		{"negative", "-1", 7},
		{"garbage", "x1", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VERIFACE_TEST_INT", tt.value)
			if got := envInt("VERIFACE_TEST_INT", 7); got != tt.expected {
				t.Errorf("envInt(%q) = %d, want %d", tt.value, got, tt.expected)
			}
		})
	}
}
