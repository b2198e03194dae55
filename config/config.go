// Package config loads runtime settings for the proxy server and the studio.
// Settings come from an optional JSON file, then a .env file, then the process
// environment. The upstream API key is only ever read from the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	dirName = ".polyvibe"

	DefaultServerAddr  = ":8080"
	DefaultBaseURL     = "https://api.z.ai/api/paas/v4/"
	DefaultModel       = "glm-4.5-airx"
	DefaultMaxTokens   = 8192
	DefaultTemperature = 0.7
	DefaultMockDelay   = 20 * time.Millisecond

	envAPIKey      = "ZAI_API_KEY"
	envAddr        = "POLYVIBE_ADDR"
	envModel       = "LLM_MODEL"
	envBaseURL     = "LLM_BASE_URL"
	envLogFile     = "LOG_FILE_PATH"
	envEnvironment = "GO_ENV"
	envMockDelay   = "MOCK_DELAY_MS"
)

// Config holds everything the commands need.
type Config struct {
	ServerAddr  string     `json:"server_addr,omitempty"`
	LLM         *LLMConfig `json:"llm,omitempty"`
	LogFilePath string     `json:"log_file_path,omitempty"`
	Environment string     `json:"environment,omitempty"`

	// APIKey is filled from ZAI_API_KEY and never read from or written to the file.
	APIKey    string        `json:"-"`
	MockDelay time.Duration `json:"-"`
}

// LLMConfig describes the upstream chat-completion API. BaseURL is the API
// root (chat/completions is appended). Temperature is a pointer so an
// explicit 0 is kept.
type LLMConfig struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	BaseURL     string   `json:"base_url,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// IsProduction reports whether logs should be JSON-only.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Dir returns the per-user directory used for logs and the studio transcript.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

// Load reads the JSON file at path (skipped when path is empty or missing),
// then applies .env and environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	if cfg.LLM == nil {
		cfg.LLM = &LLMConfig{}
	}
	cfg.APIKey = os.Getenv(envAPIKey)
	cfg.ServerAddr = getEnv(envAddr, cfg.ServerAddr)
	cfg.LLM.Model = getEnv(envModel, cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv(envBaseURL, cfg.LLM.BaseURL)
	cfg.LogFilePath = getEnv(envLogFile, cfg.LogFilePath)
	cfg.Environment = getEnv(envEnvironment, cfg.Environment)
	cfg.MockDelay = time.Duration(getEnvAsInt(envMockDelay, int(DefaultMockDelay/time.Millisecond))) * time.Millisecond

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = DefaultServerAddr
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "zai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultBaseURL
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = DefaultMaxTokens
	}
	if cfg.LLM.Temperature == nil {
		t := DefaultTemperature
		cfg.LLM.Temperature = &t
	}
	if cfg.LogFilePath == "" {
		cfg.LogFilePath = filepath.Join(Dir(), "polyvibe.log")
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MockDelay < 0 {
		cfg.MockDelay = DefaultMockDelay
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
