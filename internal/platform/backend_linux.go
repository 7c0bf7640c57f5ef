//go:build linux

package platform

import (
	"fmt"
	"os"

	"github.com/1broseidon/printmon/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// X11Tree exposes an X11 window hierarchy behind the Tree interface.
type X11Tree struct {
	conn *x11.Connection
}

var _ Tree = (*X11Tree)(nil)

// NewNativeTree opens a fresh X11 connection to the session's display.
func NewNativeTree(s Session) (Tree, error) {
	resolved, err := resolveSession(s)
	if err != nil {
		return nil, err
	}
	if resolved.XAuthority != "" {
		// xgb reads the cookie location from the environment.
		os.Setenv("XAUTHORITY", resolved.XAuthority)
	}
	conn, err := x11.NewConnection(resolved.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &X11Tree{conn: conn}, nil
}

// Close closes the underlying X11 connection.
func (t *X11Tree) Close() {
	if t != nil && t.conn != nil {
		t.conn.Close()
	}
}

// TopLevelWindows returns managed client windows whose WM_CLASS matches.
func (t *X11Tree) TopLevelWindows(className string) []WindowID {
	if t == nil || t.conn == nil {
		return nil
	}
	var out []WindowID
	for _, w := range t.conn.ClientWindows() {
		if t.conn.WindowClass(w) == className {
			out = append(out, WindowID(w))
		}
	}
	return out
}

func (t *X11Tree) Children(id WindowID) []WindowID {
	if t == nil || t.conn == nil {
		return nil
	}
	_, children, ok := t.conn.QueryTree(xproto.Window(id))
	if !ok {
		return nil
	}
	out := make([]WindowID, 0, len(children))
	for _, c := range children {
		out = append(out, WindowID(c))
	}
	return out
}

func (t *X11Tree) Text(id WindowID) string {
	if t == nil || t.conn == nil {
		return ""
	}
	return t.conn.WindowTitle(xproto.Window(id))
}

func (t *X11Tree) ClassName(id WindowID) string {
	if t == nil || t.conn == nil {
		return ""
	}
	return t.conn.WindowClass(xproto.Window(id))
}

func (t *X11Tree) Rect(id WindowID) Rect {
	if t == nil || t.conn == nil {
		return Rect{}
	}
	x, y, w, h, ok := t.conn.WindowRect(xproto.Window(id))
	if !ok {
		return Rect{}
	}
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Parent returns false for the root window and for destroyed windows.
func (t *X11Tree) Parent(id WindowID) (WindowID, bool) {
	if t == nil || t.conn == nil {
		return 0, false
	}
	parent, _, ok := t.conn.QueryTree(xproto.Window(id))
	if !ok || parent == 0 || parent == t.conn.Root {
		return 0, false
	}
	return WindowID(parent), true
}
