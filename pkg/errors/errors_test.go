package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndIsCode(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap("invalid_input", "messages cannot be empty", cause)

	if !IsCode(err, "invalid_input") {
		t.Fatalf("expected code invalid_input, got %v", err)
	}
	if IsCode(err, "other_code") {
		t.Fatalf("did not expect code other_code to match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if got := err.Error(); got != "messages cannot be empty: root cause" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap("invalid_input", "bad", nil))
	if !IsCode(err, "invalid_input") {
		t.Fatalf("expected code to match through wrapping")
	}
}

func TestIsCodeOnPlainError(t *testing.T) {
	if IsCode(errors.New("plain"), "invalid_input") {
		t.Fatalf("plain errors carry no code")
	}
}
