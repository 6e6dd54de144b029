package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStatusConfig(t *testing.T, listen string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), defaultConfigFile)
	if err := os.WriteFile(path, []byte("server:\n  listen: "+listen+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckStatus_Running(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var out bytes.Buffer
	path := writeStatusConfig(t, strings.TrimPrefix(srv.URL, "http://"))
	if err := checkStatus(context.Background(), &out, path); err != nil {
		t.Fatalf("checkStatus() error = %v", err)
	}
	if !strings.Contains(out.String(), "✓ authgate is running") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestCheckStatus_Unhealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var out bytes.Buffer
	path := writeStatusConfig(t, strings.TrimPrefix(srv.URL, "http://"))
	if err := checkStatus(context.Background(), &out, path); err == nil {
		t.Fatal("expected error for 503")
	}
	if !strings.Contains(out.String(), "503") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestCheckStatus_NotRunning(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	var out bytes.Buffer
	if err := checkStatus(context.Background(), &out, writeStatusConfig(t, addr)); err == nil {
		t.Fatal("expected error when nothing listens")
	}
	if !strings.Contains(out.String(), "is not running") {
		t.Errorf("unexpected output %q", out.String())
	}
}
