package cli

import (
	"fmt"

	"github.com/cookchat-oss/cookchat/internal/config"
	"github.com/cookchat-oss/cookchat/internal/memory"
	"github.com/cookchat-oss/cookchat/internal/provider"
	"github.com/cookchat-oss/cookchat/internal/provider/openai"
	"github.com/cookchat-oss/cookchat/internal/provider/workersai"
	"github.com/cookchat-oss/cookchat/internal/telemetry"
)

// newStore builds the configured memory backend.
func newStore(cfg *config.Config, logger *telemetry.Logger) (memory.Store, error) {
	switch cfg.Memory.Backend {
	case "session":
		storage, err := memory.NewSQLiteStateStorage(cfg.Memory.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		return memory.NewSessionHost(storage, cfg.Memory.SessionMaxMessages, logger), nil
	case "kv":
		kv, err := memory.NewSQLiteKV(cfg.Memory.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open kv storage: %w", err)
		}
		ttl, err := cfg.Memory.TTLDuration()
		if err != nil {
			return nil, err
		}
		return memory.NewConversationStore(kv, cfg.Memory.MaxMessages, ttl, logger), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Memory.Backend)
	}
}

// newProvider builds the configured inference provider.
func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Name {
	case "workers-ai":
		return workersai.NewClient(cfg.Provider.APIKey, cfg.Provider.AccountID, cfg.Provider.Model), nil
	case "openai":
		return openai.NewClient(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}
