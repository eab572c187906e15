package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"mantrify/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	if CheckDirectoryAccess("test", " ").Passed {
		t.Fatal("expected failure for unset path")
	}
}

func TestCheckBackend_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meditations/all" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckBackend(context.Background(), srv.URL+"/")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckBackend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if CheckBackend(context.Background(), srv.URL).Passed {
		t.Fatal("expected failure for 502")
	}
}

func TestCheckBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := CheckBackend(context.Background(), url)
	if result.Passed {
		t.Fatal("expected failure for closed server")
	}
}

func TestCheckBackend_MissingURL(t *testing.T) {
	if CheckBackend(context.Background(), "").Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer admin":
			w.WriteHeader(http.StatusOK)
		case "Bearer user":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	cases := map[string]bool{"admin": true, "user": true, "stale": false}
	for token, want := range cases {
		got := CheckCredential(context.Background(), srv.URL, token)
		if got.Passed != want {
			t.Errorf("token %q: passed=%v want %v (%s)", token, got.Passed, want, got.Detail)
		}
	}
	if CheckCredential(context.Background(), srv.URL, "").Passed {
		t.Fatal("expected failure without token")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, "")
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.API.BaseURL = srv.URL

	results := RunAll(context.Background(), &cfg, "")
	// State, log and backend checks; no credential check without a token.
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	results = RunAll(context.Background(), &cfg, "tok")
	if len(results) != 4 || results[3].Name != "Credentials" {
		t.Fatalf("expected credential check, got %+v", results)
	}
}
