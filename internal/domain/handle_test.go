package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidateHandle_Valid(t *testing.T) {
	valid := []string{
		"abc",
		"a1b",
		"my-agent",
		"agent-007",
		"a-b-c-d",
		strings.Repeat("a", MaxHandleLen),
	}
	for _, handle := range valid {
		if err := ValidateHandle(handle); err != nil {
			t.Fatalf("expected %q to be valid, got %v", handle, err)
		}
	}
}

func TestValidateHandle_RuleSpecificErrors(t *testing.T) {
	tests := []struct {
		handle string
		code   string
	}{
		{handle: "ab", code: "HANDLE_TOO_SHORT"},
		{handle: "", code: "HANDLE_TOO_SHORT"},
		{handle: strings.Repeat("a", MaxHandleLen+1), code: "HANDLE_TOO_LONG"},
		{handle: "1abc", code: "HANDLE_MUST_START_WITH_LETTER"},
		{handle: "-abc", code: "HANDLE_MUST_START_WITH_LETTER"},
		{handle: "my--agent", code: "HANDLE_CONSECUTIVE_HYPHENS"},
		{handle: "MyAgent", code: "HANDLE_UPPERCASE"},
		{handle: "my_agent", code: "HANDLE_INVALID_CHARS"},
		{handle: "my agent", code: "HANDLE_INVALID_CHARS"},
		{handle: "agent-", code: "HANDLE_TRAILING_HYPHEN"},
	}
	for _, tt := range tests {
		err := ValidateHandle(tt.handle)
		if err == nil {
			t.Fatalf("expected %q to be rejected", tt.handle)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for %q, got %T", tt.handle, err)
		}
		if verr.Code != tt.code {
			t.Fatalf("handle %q: expected code %s, got %s", tt.handle, tt.code, verr.Code)
		}
		if verr.Message == "" {
			t.Fatalf("handle %q: expected a message", tt.handle)
		}
		if !errors.Is(err, ErrHandleInvalid) {
			t.Fatalf("handle %q: expected ErrHandleInvalid", tt.handle)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "My Cool Agent", want: "my-cool-agent"},
		{in: "  Hello   World  ", want: "hello-world"},
		{in: "Agent!!! #1", want: "agent-1"},
		{in: "a -- b", want: "a-b"},
		{in: "42 bots", want: "a-42-bots"},
		{in: "X", want: "xxx"},
		{in: "", want: "a-x"},
		{in: "!!!", want: "a-x"},
		{in: strings.Repeat("abc ", 20), want: "abc-abc-abc-abc-abc-abc-abc-ab"},
		{in: "abcdefghijklmnopqrstuvwxyz012 4", want: "abcdefghijklmnopqrstuvwxyz012"},
	}
	for _, tt := range tests {
		got := Slugify(tt.in)
		if got != tt.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if err := ValidateHandle(got); err != nil {
			t.Fatalf("Slugify(%q) produced invalid handle %q: %v", tt.in, got, err)
		}
	}
}

func TestSlugify_IdempotentOnValidHandles(t *testing.T) {
	for _, handle := range []string{"abc", "my-agent", "agent-007", "q1-w2-e3", strings.Repeat("b", MaxHandleLen)} {
		if err := ValidateHandle(handle); err != nil {
			t.Fatalf("fixture %q should be valid: %v", handle, err)
		}
		if got := Slugify(handle); got != handle {
			t.Fatalf("Slugify(%q) = %q, expected unchanged", handle, got)
		}
	}
}

func TestEnsureUnique(t *testing.T) {
	ctx := context.Background()
	taken := map[string]bool{"my-agent": true}
	exists := func(_ context.Context, h string) (bool, error) { return taken[h], nil }

	got, err := EnsureUnique(ctx, "fresh-agent", exists)
	if err != nil || got != "fresh-agent" {
		t.Fatalf("expected free base to be returned, got %q err=%v", got, err)
	}

	got, err = EnsureUnique(ctx, "my-agent", exists)
	if err != nil {
		t.Fatalf("ensure unique: %v", err)
	}
	if !strings.HasPrefix(got, "my-agent-") || len(got) != len("my-agent-")+4 {
		t.Fatalf("unexpected suffixed handle %q", got)
	}
	if err := ValidateHandle(got); err != nil {
		t.Fatalf("suffixed handle invalid: %v", err)
	}

	long := strings.Repeat("a", 24) + "-bcde"
	taken[long] = true
	got, err = EnsureUnique(ctx, long, exists)
	if err != nil {
		t.Fatalf("ensure unique long: %v", err)
	}
	if len(got) > MaxHandleLen {
		t.Fatalf("suffixed handle too long: %q", got)
	}
	if err := ValidateHandle(got); err != nil {
		t.Fatalf("suffixed long handle invalid: %q %v", got, err)
	}
}

func TestEnsureUniqueStrict_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	calls := 0
	exists := func(_ context.Context, h string) (bool, error) {
		calls++
		return calls <= 2, nil
	}
	got, err := EnsureUniqueStrict(ctx, "busy", exists)
	if err != nil {
		t.Fatalf("strict: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 existence checks, got %d", calls)
	}
	if !strings.HasPrefix(got, "busy-") {
		t.Fatalf("unexpected handle %q", got)
	}

	always := func(context.Context, string) (bool, error) { return true, nil }
	if _, err := EnsureUniqueStrict(ctx, "busy", always); err == nil {
		t.Fatal("expected error when every candidate is taken")
	}
}
