package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgallion1/docatlas/internal/chunker"
	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/dgallion1/docatlas/internal/segmenter"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Storage
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload and connection limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	MaxConnections int   `yaml:"max_connections"`

	// Job state
	JobTTL      time.Duration `yaml:"job_ttl"`
	StatsWindow time.Duration `yaml:"stats_window"`

	// Extraction defaults
	ApplyBlockCleaning bool       `yaml:"apply_block_cleaning"`
	IncludeKeywords    bool       `yaml:"include_keywords"`
	MaxWords           int        `yaml:"max_words"`
	SoftMaxWords       int        `yaml:"soft_max_words"`
	HeadingSizes       [4]float64 `yaml:"heading_sizes"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            "8090",
		DataDir:         "data",
		WorkerCount:     4,
		MaxQueueSize:    100,
		MaxUploadBytes:  52428800, // 50MB
		MaxConnections:  256,
		JobTTL:          1 * time.Hour,
		StatsWindow:     1 * time.Hour,
		IncludeKeywords: true,
		MaxWords:        600,
		SoftMaxWords:    300,
		HeadingSizes:    [4]float64{18, 14, 12, 10},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg = applyEnv(cfg)
	cfg.fillDefaults()
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCATLAS_API_KEY", cfg.APIKey)
	cfg.DataDir = envOr("DATA_DIR", cfg.DataDir)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxConnections = envInt("MAX_CONNECTIONS", cfg.MaxConnections)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)

	cfg.ApplyBlockCleaning = envBool("APPLY_BLOCK_CLEANING", cfg.ApplyBlockCleaning)
	cfg.IncludeKeywords = envBool("INCLUDE_KEYWORDS", cfg.IncludeKeywords)
	cfg.MaxWords = envInt("MAX_WORDS", cfg.MaxWords)
	cfg.SoftMaxWords = envInt("SOFT_MAX_WORDS", cfg.SoftMaxWords)
	return cfg
}

// fillDefaults replaces non-positive values with the built-in defaults.
func (c *Config) fillDefaults() {
	d := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = d.MaxConnections
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
	if c.MaxWords <= 0 {
		c.MaxWords = d.MaxWords
	}
	if c.SoftMaxWords <= 0 {
		c.SoftMaxWords = d.SoftMaxWords
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.HeadingSizes == ([4]float64{}) {
		c.HeadingSizes = d.HeadingSizes
	}
}

// RegistryPath is DBPath, or registry.db inside DataDir when unset.
func (c Config) RegistryPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "registry.db")
}

// PipelineOptions carries the configured heading sizes and chunk limits
// into an extraction.Pipeline.
func (c Config) PipelineOptions() []extraction.Option {
	seg := segmenter.DefaultConfig()
	seg.Levels = c.HeadingSizes
	return []extraction.Option{
		extraction.WithSegmenterConfig(seg),
		extraction.WithChunkerConfig(chunker.Config{MaxWords: c.MaxWords, SoftMaxWords: c.SoftMaxWords}),
	}
}

// ExtractionOptions are the per-document defaults for jobs that do not
// override them.
func (c Config) ExtractionOptions() extraction.Options {
	return extraction.Options{
		ApplyBlockCleaning: c.ApplyBlockCleaning,
		IncludeKeywords:    c.IncludeKeywords,
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCATLAS_API_KEY is required")
	}
	if c.SoftMaxWords > c.MaxWords {
		return fmt.Errorf("SOFT_MAX_WORDS (%d) must not exceed MAX_WORDS (%d)", c.SoftMaxWords, c.MaxWords)
	}
	h := c.HeadingSizes
	if !(h[0] >= h[1] && h[1] >= h[2] && h[2] >= h[3]) {
		return fmt.Errorf("heading sizes must be non-increasing, got %v", h)
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
