//go:build linux

package platform

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// sessionSources fill in whatever a Session still lacks, in order. A daemon
// started from a systemd user unit has no DISPLAY, so the environment alone
// is not enough.
var sessionSources = []func() Session{
	envSession,
	loginctlSession,
	func() Session { return Session{Display: highestXSocket("/tmp/.X11-unix")} },
	homeXAuthority,
}

// commandOutput runs an external command; replaced in tests.
var commandOutput = func(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return string(out), err
}

func resolveSession(s Session) (Session, error) {
	s = Session{}.merge(s)
	for _, source := range sessionSources {
		if s.Display != "" && s.XAuthority != "" {
			break
		}
		s = s.merge(source())
	}
	if s.Display == "" {
		return Session{}, fmt.Errorf("no X display found; set display in config (e.g. display: \":1\") or export DISPLAY")
	}
	return s, nil
}

// merge keeps s's fields and takes the missing ones from other.
func (s Session) merge(other Session) Session {
	if s.Display == "" {
		s.Display = strings.TrimSpace(other.Display)
	}
	if s.XAuthority == "" {
		s.XAuthority = strings.TrimSpace(other.XAuthority)
	}
	return s
}

func envSession() Session {
	return Session{Display: os.Getenv("DISPLAY"), XAuthority: os.Getenv("XAUTHORITY")}
}

// loginctlSession asks logind for the caller's graphical session and reads
// the session leader's environment for the exact DISPLAY and XAUTHORITY.
func loginctlSession() Session {
	out, err := commandOutput("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return Session{}
	}
	for _, id := range sessionsOfUser(out, strconv.Itoa(os.Getuid())) {
		display := sessionProperty(id, "Display")
		if display == "" || strings.EqualFold(display, "n/a") {
			continue
		}
		s := Session{Display: display}
		if leader := sessionProperty(id, "Leader"); leader != "" && leader != "0" {
			if data, err := os.ReadFile(filepath.Join("/proc", leader, "environ")); err == nil {
				s = Session{}.merge(Session{
					Display:    environValue(data, "DISPLAY"),
					XAuthority: environValue(data, "XAUTHORITY"),
				}).merge(s)
			}
		}
		return s
	}
	return Session{}
}

// sessionsOfUser returns the session ids in `loginctl list-sessions` output
// that belong to uid.
func sessionsOfUser(listing, uid string) []string {
	var ids []string
	for _, line := range strings.Split(listing, "\n") {
		if f := strings.Fields(line); len(f) >= 2 && f[1] == uid {
			ids = append(ids, f[0])
		}
	}
	return ids
}

func sessionProperty(id, prop string) string {
	out, err := commandOutput("loginctl", "show-session", id, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// environValue looks key up in a NUL-separated /proc/<pid>/environ blob.
func environValue(environ []byte, key string) string {
	prefix := []byte(key + "=")
	for _, kv := range bytes.Split(environ, []byte{0}) {
		if bytes.HasPrefix(kv, prefix) {
			return string(kv[len(prefix):])
		}
	}
	return ""
}

// highestXSocket maps the highest-numbered X<n> socket in dir to ":n".
func highestXSocket(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	best := -1
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "X") {
			continue
		}
		if n, err := strconv.Atoi(name[1:]); err == nil && n > best {
			best = n
		}
	}
	if best < 0 {
		return ""
	}
	return ":" + strconv.Itoa(best)
}

func homeXAuthority() Session {
	home, err := os.UserHomeDir()
	if err != nil {
		return Session{}
	}
	p := filepath.Join(home, ".Xauthority")
	if _, err := os.Stat(p); err != nil {
		return Session{}
	}
	return Session{XAuthority: p}
}
