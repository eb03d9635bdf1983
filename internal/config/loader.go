package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads the main project configuration
func Load(dir string) (*Config, error) {
	configFile := filepath.Join(dir, "cookchat.yaml")

	content, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if no file exists
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content = []byte(interpolateEnv(string(content)))

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// TTLDuration parses the memory TTL setting.
func (m MemoryConfig) TTLDuration() (time.Duration, error) {
	if m.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid memory ttl %q: %w", m.TTL, err)
	}
	return d, nil
}

// interpolateEnv replaces ${env.VAR} and ${VAR} with environment values
func interpolateEnv(content string) string {
	// Match ${env.VAR} pattern
	envPattern := regexp.MustCompile(`\$\{env\.([^}]+)\}`)
	content = envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // keep original if not found
	})

	// Match ${VAR} pattern
	varPattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	content = varPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := varPattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(varName, "env.") {
			return match
		}
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return content
}

func defaultConfig() *Config {
	return &Config{
		Name:    "cookchat",
		Version: "1.0",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Provider: ProviderConfig{
			Name:      "workers-ai",
			Model:     "@cf/meta/llama-3.3-70b-instruct-fp8-fast",
			MaxTokens: 1024,
		},
		Memory: MemoryConfig{
			Backend:     "kv",
			Path:        ".cookchat/memory.db",
			MaxMessages: 50,
			TTL:         "168h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "cookchat"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "workers-ai"
	}
	if cfg.Provider.Model == "" && cfg.Provider.Name == "workers-ai" {
		cfg.Provider.Model = "@cf/meta/llama-3.3-70b-instruct-fp8-fast"
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 1024
	}
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "kv"
	}
	if cfg.Memory.Path == "" {
		cfg.Memory.Path = ".cookchat/memory.db"
	}
	if cfg.Memory.MaxMessages == 0 {
		cfg.Memory.MaxMessages = 50
	}
	if cfg.Memory.TTL == "" {
		cfg.Memory.TTL = "168h"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	// Load credentials from environment if not set
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Name {
		case "workers-ai":
			cfg.Provider.APIKey = os.Getenv("CLOUDFLARE_API_TOKEN")
		case "openai":
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Provider.AccountID == "" {
		cfg.Provider.AccountID = os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	}
}
