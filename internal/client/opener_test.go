package client

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestOpenBrowserUsesSystemLauncher(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("launcher lookup through PATH is linux only")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "opened")
	script := "#!/bin/sh\nprintf '%s' \"$1\" > " + out + "\n"
	if err := os.WriteFile(filepath.Join(dir, "xdg-open"), []byte(script), 0o755); err != nil {
		t.Fatalf("write launcher: %v", err)
	}
	t.Setenv("PATH", dir)

	const loginURL = "http://127.0.0.1:8080/api/auth/google/login?redirect_uri=x"
	if err := OpenBrowser(loginURL); err != nil {
		t.Fatalf("OpenBrowser: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("launcher not run: %v", err)
	}
	if string(got) != loginURL {
		t.Fatalf("expected %q, got %q", loginURL, got)
	}
}

func TestOpenBrowserWithoutLauncher(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("launcher lookup through PATH is linux only")
	}
	t.Setenv("PATH", t.TempDir())

	if err := OpenBrowser("http://127.0.0.1/"); err == nil {
		t.Fatal("expected error when no launcher is installed")
	}
}
