package browser

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFindChrome_IgnoresBogusConfiguredPath(t *testing.T) {
	bogus := filepath.Join(t.TempDir(), "no-such-chrome")
	if got := FindChrome(bogus); got == bogus {
		t.Errorf("FindChrome returned the nonexistent configured path %q", got)
	}
}

func TestFindChrome_PrefersConfiguredExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec bit semantics differ on windows")
	}
	path := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	if got := FindChrome(path); got != path {
		t.Errorf("FindChrome = %q, want the configured executable", got)
	}
}

func TestIsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec bit semantics differ on windows")
	}
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain")
	os.WriteFile(plain, []byte("data"), 0o644)
	if isExecutable(plain) {
		t.Error("non-executable file reported as executable")
	}

	if isExecutable(dir) {
		t.Error("directory reported as executable")
	}

	exe := filepath.Join(dir, "exe")
	os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755)
	if !isExecutable(exe) {
		t.Error("executable file not recognized")
	}
}
