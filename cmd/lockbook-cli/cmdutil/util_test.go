package cmdutil

import (
	"path/filepath"
	"testing"
)

func TestDefaultDataDirUsesXDGWhenSet(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-test")

	dir, err := DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir() error = %v", err)
	}
	want := filepath.Join("/tmp/xdg-test", "lockbook")
	if dir != want {
		t.Errorf("DefaultDataDir() = %q, want %q", dir, want)
	}
}

func TestDefaultDataDirFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/tester")

	dir, err := DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir() error = %v", err)
	}
	want := filepath.Join("/home/tester", ".local", "share", "lockbook")
	if dir != want {
		t.Errorf("DefaultDataDir() = %q, want %q", dir, want)
	}
}

func TestRequireAccountErrorsWithoutAccount(t *testing.T) {
	orig := Flags.DataDir
	defer func() { Flags.DataDir = orig }()
	Flags.DataDir = t.TempDir()

	_, err := RequireAccount()
	if err == nil {
		t.Fatal("RequireAccount() on a fresh data dir = nil error, want an error")
	}
}
