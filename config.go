package mcqbank

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration of an ingestion run
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// LLMConfig selects and tunes the language model
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // "gemini" or "openai"
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float32       `mapstructure:"temperature"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig enables the LLM response cache when URL is set
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// DatabaseConfig points at the question store
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // "sqlite3" or "postgres"
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// OCRConfig controls OCR of pages that carry images
type OCRConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	DPI     float64       `mapstructure:"dpi"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IngestConfig shapes the run itself
type IngestConfig struct {
	PDFDir        string `mapstructure:"pdf_dir"`
	WindowPages   int    `mapstructure:"window_pages"`
	OverlapPages  int    `mapstructure:"overlap_pages"`
	BatchPages    int    `mapstructure:"batch_pages"`
	ClassifyBatch int    `mapstructure:"classify_batch"`
	DumpDir       string `mapstructure:"dump_dir"`
	LogDir        string `mapstructure:"log_dir"`
}

// LoadENV loads .env into the environment outside production. A missing
// .env file is not an error.
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

// LoadConfig merges defaults, the optional YAML file at configPath and the
// environment. Environment variables use the MCQ_ prefix (MCQ_LLM_MODEL,
// MCQ_DATABASE_DRIVER, ...); OPENAI_API_KEY, GEMINI_API_KEY, DB_HOST,
// DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, OCR_SERVICE_URL and REDIS_URL
// are honoured as well.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.min_interval", "2s")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.cache_ttl", "168h")

	v.SetDefault("redis.url", "")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "mcq_db")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.url", "http://127.0.0.1:8081")
	v.SetDefault("ocr.dpi", DefaultOCRDPI)
	v.SetDefault("ocr.timeout", "2m")

	v.SetDefault("ingest.pdf_dir", "pdf_files")
	v.SetDefault("ingest.window_pages", DefaultWindowPages)
	v.SetDefault("ingest.overlap_pages", DefaultOverlapPages)
	v.SetDefault("ingest.batch_pages", 20)
	v.SetDefault("ingest.classify_batch", DefaultClassifyBatchSize)
	v.SetDefault("ingest.dump_dir", ".")
	v.SetDefault("ingest.log_dir", "log")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("MCQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"llm.openai_api_key": {"OPENAI_API_KEY"},
		"llm.gemini_api_key": {"GEMINI_API_KEY"},
		"database.host":      {"MCQ_DATABASE_HOST", "DB_HOST"},
		"database.port":      {"MCQ_DATABASE_PORT", "DB_PORT"},
		"database.user":      {"MCQ_DATABASE_USER", "DB_USER"},
		"database.password":  {"MCQ_DATABASE_PASSWORD", "DB_PASSWORD"},
		"database.name":      {"MCQ_DATABASE_NAME", "DB_NAME"},
		"ocr.url":            {"MCQ_OCR_URL", "OCR_SERVICE_URL"},
		"redis.url":          {"MCQ_REDIS_URL", "REDIS_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v.GetString("llm." + cfg.LLM.Provider + "_api_key")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Ingest.WindowPages < 1 {
		return fmt.Errorf("window_pages must be positive, got %d", c.Ingest.WindowPages)
	}
	if c.Ingest.OverlapPages < 0 || c.Ingest.OverlapPages >= c.Ingest.WindowPages {
		return fmt.Errorf("overlap_pages must be in [0, %d), got %d", c.Ingest.WindowPages, c.Ingest.OverlapPages)
	}
	if c.Ingest.BatchPages < 1 {
		return fmt.Errorf("batch_pages must be positive, got %d", c.Ingest.BatchPages)
	}
	return nil
}

// DataSource returns the DSN to open. Postgres falls back to a DSN built
// from the host settings; sqlite falls back to mcqbank.db.
func (d DatabaseConfig) DataSource() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
	return "mcqbank.db"
}
