package config

import (
	"fmt"

	cerrors "github.com/cookchat-oss/cookchat/internal/errors"
)

func validate(cfg *Config) error {
	switch cfg.Memory.Backend {
	case "kv", "session":
	default:
		return cerrors.New(cerrors.CodeConfigInvalid,
			fmt.Sprintf("unknown memory backend %q", cfg.Memory.Backend)).
			WithSuggestion(`Set memory.backend to "kv" or "session"`)
	}

	switch cfg.Provider.Name {
	case "workers-ai", "openai":
	default:
		return cerrors.New(cerrors.CodeConfigInvalid,
			fmt.Sprintf("unknown provider %q", cfg.Provider.Name)).
			WithSuggestion(`Set provider.name to "workers-ai" or "openai"`)
	}

	if _, err := cfg.Memory.TTLDuration(); err != nil {
		return cerrors.Wrap(cerrors.CodeConfigInvalid, "invalid memory configuration", err)
	}

	if cfg.Memory.MaxMessages < 0 || cfg.Memory.SessionMaxMessages < 0 {
		return cerrors.New(cerrors.CodeConfigInvalid, "message caps must not be negative")
	}

	return nil
}
