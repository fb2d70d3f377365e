package mcqbank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "REDIS_URL", "OCR_SERVICE_URL",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"MCQ_LLM_PROVIDER", "MCQ_LLM_API_KEY", "MCQ_LLM_MODEL",
		"MCQ_DATABASE_DRIVER", "MCQ_DATABASE_DSN", "MCQ_INGEST_WINDOW_PAGES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "g-key" {
		t.Errorf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.LLM.MinInterval != 2*time.Second || cfg.LLM.MaxAttempts != 3 || cfg.LLM.CacheTTL != 168*time.Hour {
		t.Errorf("unexpected llm tuning %+v", cfg.LLM)
	}
	if cfg.Database.Driver != "sqlite3" || cfg.Database.DataSource() != "mcqbank.db" {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Ingest.WindowPages != DefaultWindowPages || cfg.Ingest.OverlapPages != DefaultOverlapPages || cfg.Ingest.BatchPages != 20 {
		t.Errorf("unexpected ingest config %+v", cfg.Ingest)
	}
	if cfg.Redis.URL != "" || cfg.OCR.Enabled {
		t.Errorf("expected cache and OCR off, got %+v %+v", cfg.Redis, cfg.OCR)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("MCQ_INGEST_WINDOW_PAGES", "6")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	path := filepath.Join(t.TempDir(), "mcqbank.yaml")
	yaml := `llm:
  provider: OpenAI
  model: gpt-4o-mini
database:
  driver: postgres
ingest:
  window_pages: 4
  overlap_pages: 1
ocr:
  enabled: true
  timeout: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "o-key" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.Ingest.WindowPages != 6 || cfg.Ingest.OverlapPages != 1 {
		t.Errorf("expected env to override the file, got %+v", cfg.Ingest)
	}
	dsn := cfg.Database.DataSource()
	if !strings.Contains(dsn, "host=db.internal") || !strings.Contains(dsn, "dbname=mcq_db") {
		t.Errorf("unexpected dsn %q", dsn)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" || !cfg.OCR.Enabled || cfg.OCR.Timeout != 30*time.Second {
		t.Errorf("unexpected redis/ocr config %+v %+v", cfg.Redis, cfg.OCR)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearConfigEnv(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LLM:      LLMConfig{Provider: "gemini"},
			Database: DatabaseConfig{Driver: "sqlite3"},
			Ingest:   IngestConfig{WindowPages: 5, OverlapPages: 2, BatchPages: 20},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"provider", func(c *Config) { c.LLM.Provider = "claude" }, "llm provider"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database driver"},
		{"window", func(c *Config) { c.Ingest.WindowPages = 0 }, "window_pages"},
		{"overlap", func(c *Config) { c.Ingest.OverlapPages = 5 }, "overlap_pages"},
		{"batch", func(c *Config) { c.Ingest.BatchPages = 0 }, "batch_pages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDataSourcePrefersDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", DSN: "postgres://u@h/db"}
	if d.DataSource() != "postgres://u@h/db" {
		t.Fatalf("got %q", d.DataSource())
	}
}

func TestLoadENV(t *testing.T) {
	t.Setenv("GO_ENV", "")
	dir := t.TempDir()
	t.Chdir(dir)

	if err := LoadENV(); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MCQBANK_DOTENV_TEST=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("MCQBANK_DOTENV_TEST") })

	if err := LoadENV(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("MCQBANK_DOTENV_TEST"); got != "loaded" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}
