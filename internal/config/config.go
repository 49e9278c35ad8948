package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all CyberFlux configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Report generation
	Report ReportConfig `yaml:"report"`

	// Upstream proxy target
	Proxy ProxyConfig `yaml:"proxy"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LLMConfig configures the generative-language client.
type LLMConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	BaseURL         string `yaml:"base_url"`
	Timeout         string `yaml:"timeout"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// ReportConfig configures report generation.
type ReportConfig struct {
	// Directory holding uploaded/known CSV datasets
	DataDir string `yaml:"data_dir"`

	// Directory where generated PDFs and chart PNGs are written
	TmpDir string `yaml:"tmp_dir"`

	// Maximum data rows included in an outbound prompt sample
	SampleRows int `yaml:"sample_rows"`

	// Evidence rows attached to summaries and PDFs
	EvidenceRows int `yaml:"evidence_rows"`
}

// ProxyConfig configures the report-download proxy.
type ProxyConfig struct {
	// Base URL of the upstream report backend
	BackendBase string `yaml:"backend_base"`
	Timeout     string `yaml:"timeout"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool   `yaml:"debug_mode"`
	Level      string `yaml:"level"` // debug, info, warn, error
	JSONFormat bool   `yaml:"json_format"`
	Dir        string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cyberflux",
		Version: "0.4.0",

		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     "30s",
			ShutdownTimeout: "5s",
		},

		LLM: LLMConfig{
			Model:           "gemini-2.0-flash",
			EmbeddingModel:  "gemini-embedding-001",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Timeout:         "120s",
			MaxOutputTokens: 8192,
		},

		Report: ReportConfig{
			DataDir:      "data",
			TmpDir:       "tmp_reports",
			SampleRows:   60,
			EvidenceRows: 8,
		},

		Proxy: ProxyConfig{
			BackendBase: "http://localhost:8000",
			Timeout:     "60s",
		},

		Store: StoreConfig{
			DatabasePath: "data/cyberflux.db",
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".cyberflux/logs",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file is not an error: defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Environment always wins over file values.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("CYBERFLUX_BACKEND_URL"); url != "" {
		c.Proxy.BackendBase = url
	}
	if dir := os.Getenv("CYBERFLUX_DATA_DIR"); dir != "" {
		c.Report.DataDir = dir
	}
	if path := os.Getenv("CYBERFLUX_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if addr := os.Getenv("CYBERFLUX_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetProxyTimeout returns the upstream proxy timeout as a duration.
func (c *Config) GetProxyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Proxy.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetShutdownTimeout returns the graceful shutdown window as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address not configured")
	}
	if c.Report.SampleRows <= 0 {
		return fmt.Errorf("sample_rows must be positive, got %d", c.Report.SampleRows)
	}
	if c.Report.EvidenceRows <= 0 {
		return fmt.Errorf("evidence_rows must be positive, got %d", c.Report.EvidenceRows)
	}
	return nil
}

// HasAPIKey reports whether a generative-language API key is configured.
// Report generation degrades to the deterministic summary when it is not.
func (c *Config) HasAPIKey() bool {
	return c.LLM.APIKey != ""
}
