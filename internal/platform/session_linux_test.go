//go:build linux

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func withSessionSources(t *testing.T, sources ...func() Session) {
	t.Helper()
	orig := sessionSources
	sessionSources = sources
	t.Cleanup(func() { sessionSources = orig })
}

func fixed(s Session) func() Session {
	return func() Session { return s }
}

func TestResolveSession(t *testing.T) {
	env := fixed(Session{Display: ":7", XAuthority: "/tmp/xauth-env"})
	detected := fixed(Session{Display: ":5", XAuthority: "/tmp/xauth-detected"})
	socket := fixed(Session{Display: ":3"})
	home := fixed(Session{XAuthority: "/home/u/.Xauthority"})
	none := fixed(Session{})

	tests := []struct {
		name    string
		in      Session
		sources []func() Session
		want    Session
	}{
		{"explicit wins", Session{Display: " :1 ", XAuthority: "/tmp/cfg"}, []func() Session{env, detected}, Session{Display: ":1", XAuthority: "/tmp/cfg"}},
		{"environment", Session{}, []func() Session{env, detected}, Session{Display: ":7", XAuthority: "/tmp/xauth-env"}},
		{"detected session", Session{}, []func() Session{none, detected, socket}, Session{Display: ":5", XAuthority: "/tmp/xauth-detected"}},
		{"socket and home cookie", Session{}, []func() Session{none, none, socket, home}, Session{Display: ":3", XAuthority: "/home/u/.Xauthority"}},
		{"explicit display keeps detected cookie", Session{Display: ":2"}, []func() Session{none, detected}, Session{Display: ":2", XAuthority: "/tmp/xauth-detected"}},
		{"cookie optional", Session{}, []func() Session{socket}, Session{Display: ":3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSessionSources(t, tt.sources...)
			got, err := resolveSession(tt.in)
			if err != nil {
				t.Fatalf("resolveSession: %v", err)
			}
			if got != tt.want {
				t.Fatalf("resolveSession = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveSession_StopsOnceComplete(t *testing.T) {
	called := false
	withSessionSources(t,
		fixed(Session{Display: ":7", XAuthority: "/tmp/x"}),
		func() Session { called = true; return Session{} },
	)
	if _, err := resolveSession(Session{}); err != nil {
		t.Fatalf("resolveSession: %v", err)
	}
	if called {
		t.Fatalf("later source consulted after the session was complete")
	}
}

func TestResolveSession_ErrorWhenNoDisplay(t *testing.T) {
	withSessionSources(t, fixed(Session{XAuthority: "/tmp/x"}))

	_, err := resolveSession(Session{})
	if err == nil || !strings.Contains(err.Error(), "no X display") {
		t.Fatalf("expected display error, got %v", err)
	}
}

func TestLoginctlSession(t *testing.T) {
	uid := os.Getuid()
	orig := commandOutput
	t.Cleanup(func() { commandOutput = orig })

	listing := "c1 99999 other seat0\nc2 " + strconv.Itoa(uid) + " me seat0\n"
	commandOutput = func(name string, args ...string) (string, error) {
		switch {
		case args[0] == "list-sessions":
			return listing, nil
		case args[1] == "c2" && args[3] == "Display":
			return ":4\n", nil
		case args[1] == "c2" && args[3] == "Leader":
			return "0\n", nil
		}
		return "", errors.New("unexpected loginctl call")
	}

	if got := loginctlSession(); got.Display != ":4" || got.XAuthority != "" {
		t.Fatalf("loginctlSession = %+v", got)
	}

	commandOutput = func(string, ...string) (string, error) { return "", errors.New("no logind") }
	if got := loginctlSession(); got != (Session{}) {
		t.Fatalf("loginctlSession without logind = %+v", got)
	}
}

func TestSessionsOfUser(t *testing.T) {
	out := strings.Join([]string{
		"1 1000 george seat0",
		"2 1001 alice seat0",
		"  3 1000 george seat1",
		"",
	}, "\n")
	got := sessionsOfUser(out, "1000")
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("sessionsOfUser = %v, want [1 3]", got)
	}
}

func TestEnvironValue(t *testing.T) {
	blob := []byte("HOME=/home/u\x00DISPLAY=:1\x00XAUTHORITY=/run/user/1000/gdm/Xauthority\x00")
	tests := []struct {
		key, want string
	}{
		{"DISPLAY", ":1"},
		{"XAUTHORITY", "/run/user/1000/gdm/Xauthority"},
		{"DISPLAY_NUMBER", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		if got := environValue(blob, tt.key); got != tt.want {
			t.Errorf("environValue(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestHighestXSocket(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X0", "X10", "X2", "Xnot", "not-a-display"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if got := highestXSocket(dir); got != ":10" {
		t.Fatalf("highestXSocket = %q, want :10", got)
	}
	if got := highestXSocket(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("highestXSocket on missing dir = %q", got)
	}
}

func TestHomeXAuthority(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := homeXAuthority(); got != (Session{}) {
		t.Fatalf("homeXAuthority without cookie = %+v", got)
	}

	cookie := filepath.Join(home, ".Xauthority")
	if err := os.WriteFile(cookie, []byte("cookie"), 0o600); err != nil {
		t.Fatalf("write cookie: %v", err)
	}
	if got := homeXAuthority(); got.XAuthority != cookie {
		t.Fatalf("homeXAuthority = %+v, want %s", got, cookie)
	}
}
