package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SocketEnv overrides the daemon socket location.
const SocketEnv = "PRINTMON_SOCKET"

const appDir = "printmon"

// base picks the per-user runtime root: XDG_RUNTIME_DIR, then
// /run/user/<uid>, then the system temp dir.
func base() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	uid := os.Getuid()
	if uid >= 0 {
		run := filepath.Join("/run/user", strconv.Itoa(uid))
		if info, err := os.Stat(run); err == nil && info.IsDir() {
			return run
		}
		return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", appDir, uid))
	}
	// Windows reports uid -1.
	return os.TempDir()
}

// Dir returns the private runtime directory, creating it with 0700.
func Dir() (string, error) {
	dir := filepath.Join(base(), appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return dir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	if p := os.Getenv(SocketEnv); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daemon.sock"), nil
}
