package chat

import (
	"context"

	cerrors "github.com/cookchat-oss/cookchat/internal/errors"
	"github.com/cookchat-oss/cookchat/internal/memory"
	"github.com/cookchat-oss/cookchat/internal/provider"
	"github.com/cookchat-oss/cookchat/internal/telemetry"
)

// DefaultSystemPrompt is injected as the first message whenever the merged
// history carries no system message.
const DefaultSystemPrompt = "Your task is to help the user to prepare a meal according to the ingredients they have in the fridge. You may receive multiple messages from the user, each containing a list of ingredients. Based on the ingredients provided, suggest a recipe that can be made with those ingredients. If the user provides additional ingredients in subsequent messages, update your recipe suggestion accordingly. Always aim to create a delicious and feasible meal plan based on the available ingredients."

// FallbackReply is returned when the provider fails or produces an empty
// reply. Inference failures are recovered locally, never surfaced to the
// caller as request failures.
const FallbackReply = "I'm sorry, I couldn't come up with a suggestion right now. Please try again."

// Orchestrator runs the per-request memory protocol: resolve the session,
// load prior history, merge the new turns, enforce the system-prompt
// invariant, call the provider, and persist the result.
type Orchestrator struct {
	store        memory.Store
	llm          provider.Provider
	model        string
	maxTokens    int
	systemPrompt string
	logger       *telemetry.Logger
}

// New creates an orchestrator over the given backend and provider.
func New(store memory.Store, llm provider.Provider, model string, maxTokens int, systemPrompt string, logger *telemetry.Logger) *Orchestrator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Orchestrator{
		store:        store,
		llm:          llm,
		model:        model,
		maxTokens:    maxTokens,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Result is the outcome of one chat turn.
type Result struct {
	Reply      string
	SessionID  string
	NewSession bool
}

// Store exposes the active memory backend (used by the memory endpoints and
// the CLI).
func (o *Orchestrator) Store() memory.Store {
	return o.store
}

// Chat handles one inbound chat call. An empty sessionID marks the session
// as new and generates an identifier; the caller must propagate the returned
// ID back to the client. metadata (user agent, connecting IP) is persisted
// alongside the history.
//
// A store or persistence failure is terminal for the request. There is no
// cleanup of partial state: a reply that was produced but not persisted is
// simply absent from history, as if the request never happened.
func (o *Orchestrator) Chat(ctx context.Context, sessionID string, incoming []memory.ChatMessage, metadata map[string]string) (*Result, error) {
	newSession := sessionID == ""
	if newSession {
		sessionID = memory.NewSessionID()
	}

	prior, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CodePersistence, "failed to load conversation", err)
	}

	var all []memory.ChatMessage
	if prior != nil && !newSession {
		all = append(all, prior.Messages...)
		for _, msg := range incoming {
			// Submitted system messages are superseded by the injected
			// system prompt and dropped here.
			if msg.Role == memory.RoleUser || msg.Role == memory.RoleAssistant {
				all = append(all, msg)
			}
		}
	} else {
		all = append(all, incoming...)
	}

	if !hasSystemMessage(all) {
		all = append([]memory.ChatMessage{{Role: memory.RoleSystem, Content: o.systemPrompt}}, all...)
	}

	reply := o.complete(ctx, all)
	all = append(all, memory.ChatMessage{Role: memory.RoleAssistant, Content: reply})

	if err := o.store.Save(ctx, sessionID, all, metadata); err != nil {
		return nil, cerrors.Wrap(cerrors.CodePersistence, "failed to save conversation", err)
	}

	return &Result{
		Reply:      reply,
		SessionID:  sessionID,
		NewSession: newSession,
	}, nil
}

// complete invokes the provider and substitutes the fallback reply on
// failure or empty output.
func (o *Orchestrator) complete(ctx context.Context, messages []memory.ChatMessage) string {
	msgs := make([]provider.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, provider.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := o.llm.Complete(ctx, &provider.CompletionRequest{
		Model:     o.model,
		Messages:  msgs,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		o.logger.Error("Inference call failed", "provider", o.llm.Name(), "error", err)
		return FallbackReply
	}
	if resp.Content == "" {
		o.logger.Warn("Inference call returned empty reply", "provider", o.llm.Name())
		return FallbackReply
	}
	return resp.Content
}

func hasSystemMessage(messages []memory.ChatMessage) bool {
	for _, m := range messages {
		if m.Role == memory.RoleSystem {
			return true
		}
	}
	return false
}
