package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WORKER_COUNT", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8090" || cfg.WorkerCount != 4 || cfg.MaxWords != 600 || cfg.SoftMaxWords != 300 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.IncludeKeywords || cfg.ApplyBlockCleaning {
		t.Errorf("extraction defaults = %v, %v", cfg.IncludeKeywords, cfg.ApplyBlockCleaning)
	}
	if cfg.HeadingSizes != [4]float64{18, 14, 12, 10} {
		t.Errorf("heading sizes = %v", cfg.HeadingSizes)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WORKER_COUNT", "9")
	t.Setenv("JOB_TTL", "10m")
	t.Setenv("APPLY_BLOCK_CLEANING", "true")
	t.Setenv("MAX_QUEUE_SIZE", "-1")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WorkerCount != 9 || cfg.JobTTL != 10*time.Minute || !cfg.ApplyBlockCleaning {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("non-positive queue size should fall back to default, got %d", cfg.MaxQueueSize)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docatlas.yaml")
	body := "port: \"9000\"\nworker_count: 2\njob_ttl: 30s\nheading_sizes: [24, 16, 13, 11]\napi_key: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("WORKER_COUNT", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9100" {
		t.Errorf("env should win over file, port = %s", cfg.Port)
	}
	if cfg.WorkerCount != 2 || cfg.JobTTL != 30*time.Second || cfg.APIKey != "from-file" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HeadingSizes != [4]float64{24, 16, 13, 11} {
		t.Errorf("heading sizes = %v", cfg.HeadingSizes)
	}
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without API key")
	}
	cfg.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.SoftMaxWords = 700
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when soft max exceeds max")
	}
	cfg = Defaults()
	cfg.APIKey = "k"
	cfg.HeadingSizes = [4]float64{10, 12, 14, 18}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for increasing heading sizes")
	}
}

func TestRegistryPath(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/srv/docatlas"
	if got := cfg.RegistryPath(); got != filepath.Join("/srv/docatlas", "registry.db") {
		t.Errorf("RegistryPath = %s", got)
	}
	cfg.DBPath = "/tmp/x.db"
	if got := cfg.RegistryPath(); got != "/tmp/x.db" {
		t.Errorf("RegistryPath = %s", got)
	}
}

func TestExtractionOptions(t *testing.T) {
	cfg := Defaults()
	opts := cfg.ExtractionOptions()
	if opts.ApplyBlockCleaning || !opts.IncludeKeywords {
		t.Errorf("defaults = %+v", opts)
	}
	cfg.ApplyBlockCleaning = true
	if !cfg.ExtractionOptions().ApplyBlockCleaning {
		t.Error("cleaning flag not carried")
	}
	if n := len(cfg.PipelineOptions()); n != 2 {
		t.Errorf("expected 2 pipeline options, got %d", n)
	}
}
