package runtimepath

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if want := filepath.Join(td, "printmon"); got != want {
		t.Fatalf("Dir() = %q, want %q", got, want)
	}
	info, err := os.Stat(got)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Fatalf("mode = %o, want 700", perm)
	}
}

func TestSocketPath(t *testing.T) {
	td := t.TempDir()

	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"runtime dir", "", filepath.Join(td, "printmon", "daemon.sock")},
		{"override", "/tmp/custom.sock", "/tmp/custom.sock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_RUNTIME_DIR", td)
			t.Setenv(SocketEnv, tt.override)

			got, err := SocketPath()
			if err != nil {
				t.Fatalf("SocketPath() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SocketPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
