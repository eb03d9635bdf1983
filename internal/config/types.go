package config

// Config represents the main project configuration (cookchat.yaml)
type Config struct {
	Name     string         `yaml:"name" json:"name"`
	Version  string         `yaml:"version" json:"version"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Memory   MemoryConfig   `yaml:"memory" json:"memory"`
	Chat     ChatConfig     `yaml:"chat" json:"chat"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// ProviderConfig configures the LLM provider
type ProviderConfig struct {
	Name      string `yaml:"name" json:"name"`   // workers-ai, openai
	Model     string `yaml:"model" json:"model"` // @cf/meta/llama-3.3-70b-instruct-fp8-fast, etc.
	APIKey    string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	AccountID string `yaml:"account_id,omitempty" json:"account_id,omitempty"` // workers-ai only
	BaseURL   string `yaml:"base_url,omitempty" json:"base_url,omitempty"`     // openai-compatible endpoints
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// MemoryConfig configures the session memory backend
type MemoryConfig struct {
	Backend string `yaml:"backend" json:"backend"` // kv, session
	Path    string `yaml:"path" json:"path"`       // sqlite file path

	// MaxMessages is the retention window for the kv backend.
	MaxMessages int `yaml:"max_messages" json:"max_messages"`

	// TTL is how long a kv-backed session survives without a write.
	TTL string `yaml:"ttl" json:"ttl"` // e.g. "168h"

	// SessionMaxMessages caps the session backend's history. Zero means
	// unbounded, the default.
	SessionMaxMessages int `yaml:"session_max_messages" json:"session_max_messages"`
}

// ChatConfig configures the chat flow
type ChatConfig struct {
	SystemPrompt string `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"` // debug, info, warn, error
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}
