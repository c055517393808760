// Package config handles Solace configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/solace/config.yaml, /etc/solace/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "solace", "config.yaml"))
	}

	paths = append(paths, "/etc/solace/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Solace configuration. It is read once at startup and
// never mutated afterwards.
type Config struct {
	Listen    ListenConfig `yaml:"listen"`
	Model     ModelConfig  `yaml:"model"`
	Providers Providers    `yaml:"providers"`
	Memory    MemoryConfig `yaml:"memory"`
	Google    GoogleConfig `yaml:"google"`
	Speech    SpeechConfig `yaml:"speech"`
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"` // text or json
}

// ListenConfig defines the HTTP server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines which model to use and its sampling parameters.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Providers holds per-provider connection settings. API keys are usually
// supplied through environment variables rather than the config file.
type Providers struct {
	OpenAIKey    string `yaml:"openai_api_key"`
	GeminiKey    string `yaml:"gemini_api_key"`
	DeepseekKey  string `yaml:"deepseek_api_key"`
	OllamaURL    string `yaml:"ollama_url"`
	OpenAIURL    string `yaml:"openai_url"`   // override for OpenAI-compatible endpoints
	DeepseekURL  string `yaml:"deepseek_url"` // default https://api.deepseek.com
	GeminiAPIURL string `yaml:"gemini_url"`
}

// MemoryConfig defines fact and archive storage locations.
type MemoryConfig struct {
	Dir         string `yaml:"dir"`          // per-conversation fact JSON files
	ArchivePath string `yaml:"archive_path"` // sqlite session archive
}

// GoogleConfig defines the optional calendar/tasks integration.
type GoogleConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	TokenFile    string `yaml:"token_file"`
}

// SpeechConfig carries browser speech synthesis hints. Speech runs
// entirely client-side; the server only hands these values through.
type SpeechConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Voice          int     `yaml:"voice"`
	Rate           float64 `yaml:"rate"`
	Pitch          float64 `yaml:"pitch"`
	PauseThreshold float64 `yaml:"pause_threshold"` // seconds of silence before auto-send
}

// Load reads configuration from a YAML file, expands environment
// variables in its content, and applies env var overrides on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns a runnable default configuration.
func Default() *Config {
	cfg := &Config{
		Listen: ListenConfig{Port: 5555},
		Model: ModelConfig{
			Name:        "gemini-2.0-flash",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Providers: Providers{
			OllamaURL:   "http://localhost:11434",
			DeepseekURL: "https://api.deepseek.com",
		},
		Memory: MemoryConfig{
			Dir:         "data/memories",
			ArchivePath: "data/archive.db",
		},
		Speech: SpeechConfig{
			Enabled:        true,
			Voice:          1,
			Rate:           1.0,
			Pitch:          1.0,
			PauseThreshold: 2.0,
		},
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv overlays environment variables onto the config. Secrets are
// expected here rather than in the file; SOLACE_MODEL allows switching
// models without editing config.
func (c *Config) applyEnv() {
	if v := os.Getenv("SOLACE_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Providers.GeminiKey = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		c.Providers.DeepseekKey = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Providers.OllamaURL = v
	}
	if v := os.Getenv("SOLACE_MEMORY_DIR"); v != "" {
		c.Memory.Dir = v
	}
	if v := os.Getenv("SOLACE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Listen.Port = p
		}
	}
}

// TokenFile returns the OAuth token file path, defaulting to a file
// alongside the memory directory when unset.
func (g GoogleConfig) TokenFilePath(memoryDir string) string {
	if g.TokenFile != "" {
		return g.TokenFile
	}
	return filepath.Join(filepath.Dir(memoryDir), "google_token.json")
}
