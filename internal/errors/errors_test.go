package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestChatError_Error(t *testing.T) {
	err := New(CodeConfigInvalid, "unknown memory backend")
	expected := "[CONFIG_INVALID] unknown memory backend"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestChatError_Wrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap(CodeProviderError, "inference call failed", inner)

	if err.Error() != "[PROVIDER_ERROR] inference call failed: connection refused" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	// Unwrap should return inner
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find inner error")
	}
}

func TestChatError_WithSuggestion(t *testing.T) {
	err := New(CodeAPIKeyMissing, "CLOUDFLARE_API_TOKEN not set").
		WithSuggestion("Set the CLOUDFLARE_API_TOKEN environment variable or add api_key to cookchat.yaml")

	if err.Suggestion != "Set the CLOUDFLARE_API_TOKEN environment variable or add api_key to cookchat.yaml" {
		t.Errorf("unexpected suggestion: %s", err.Suggestion)
	}
}

func TestChatError_ErrorsAs(t *testing.T) {
	err := Wrap(CodePersistence, "failed to save conversation", fmt.Errorf("disk full"))

	var chatErr *ChatError
	if !errors.As(err, &chatErr) {
		t.Fatal("errors.As should work")
	}
	if chatErr.Code != CodePersistence {
		t.Errorf("expected code %q, got %q", CodePersistence, chatErr.Code)
	}
}

func TestAsCode(t *testing.T) {
	err := New(CodeSessionRequired, "missing session header")
	if AsCode(err) != CodeSessionRequired {
		t.Errorf("expected code %q, got %q", CodeSessionRequired, AsCode(err))
	}

	// Non-ChatError
	plain := fmt.Errorf("plain error")
	if AsCode(plain) != "" {
		t.Error("expected empty code for non-ChatError")
	}
}

func TestSuggestion(t *testing.T) {
	err := New(CodeNotFound, "no such session").WithSuggestion("check the session id")
	if Suggestion(err) != "check the session id" {
		t.Errorf("expected 'check the session id', got %q", Suggestion(err))
	}

	// Non-ChatError
	if Suggestion(fmt.Errorf("plain")) != "" {
		t.Error("expected empty suggestion for non-ChatError")
	}
}

func TestChatError_WrappedAs(t *testing.T) {
	inner := New(CodeProviderError, "upstream error")
	wrapped := fmt.Errorf("chat turn failed: %w", inner)

	var chatErr *ChatError
	if !errors.As(wrapped, &chatErr) {
		t.Fatal("errors.As should unwrap through fmt.Errorf")
	}
	if chatErr.Code != CodeProviderError {
		t.Errorf("expected code %q, got %q", CodeProviderError, chatErr.Code)
	}
}
