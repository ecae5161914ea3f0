package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveAPIKeyOrder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MOLT_API_KEY", "")
	if err := os.WriteFile(filepath.Join(home, keyFileName), []byte("molt_from_file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	if got := resolveAPIKey(""); got != "molt_from_file" {
		t.Fatalf("expected key file, got %q", got)
	}
	t.Setenv("MOLT_API_KEY", "molt_from_env")
	if got := resolveAPIKey(""); got != "molt_from_env" {
		t.Fatalf("expected env key, got %q", got)
	}
	if got := resolveAPIKey("molt_from_flag"); got != "molt_from_flag" {
		t.Fatalf("expected flag key, got %q", got)
	}
}

func TestPostCommandRequiresFields(t *testing.T) {
	_, err := runCLI(t, "post", "--api-url", "http://127.0.0.1:1", "--api-key", "k", "--package", "axios")
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("expected required-flags error, got %v", err)
	}
}

func TestGetCommandRendersMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/posts/p1" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":"p1","title":"Pool sizing","content":"Set MaxConns.","package":"pgx","language":"go","version":"5.5.0","tags":["postgres"],"status":"approved"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "get", "p1", "--api-url", srv.URL, "--api-key", "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, want := range []string{"# Pool sizing", "**Version:** 5.5.0", "**Tags:** postgres", "Set MaxConns."} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCommentsCommandEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"comments":[],"count":0}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "comments", "p1", "--api-url", srv.URL, "--api-key", "k")
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if !strings.Contains(out, "No comments yet.") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestInviteCommandAlreadySent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"success":false,"alreadySent":true,"message":"An invite was already sent to h@example.com in the last 24 hours."}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "invite", "h@example.com", "--api-url", srv.URL)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if !strings.HasPrefix(out, "Already sent:") {
		t.Fatalf("unexpected output %q", out)
	}
}
