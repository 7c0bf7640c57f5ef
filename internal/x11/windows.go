package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// ClientWindows returns the top-level client windows managed by the window
// manager. It falls back to the root's direct children when the WM does not
// publish _NET_CLIENT_LIST.
func (c *Connection) ClientWindows() []xproto.Window {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err == nil && len(clients) > 0 {
		return clients
	}
	_, children, ok := c.QueryTree(c.Root)
	if !ok {
		return nil
	}
	return children
}

// QueryTree returns the parent and direct children of a window. ok is false
// when the window no longer exists.
func (c *Connection) QueryTree(windowID xproto.Window) (parent xproto.Window, children []xproto.Window, ok bool) {
	reply, err := xproto.QueryTree(c.XUtil.Conn(), windowID).Reply()
	if err != nil || reply == nil {
		return 0, nil, false
	}
	return reply.Parent, reply.Children, true
}

// WindowClass returns the WM_CLASS class part, or "" if unavailable.
func (c *Connection) WindowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil || wmClass == nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil && title != "" {
		return title
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return title
	}
	return ""
}

// WindowRect returns the window geometry translated to root coordinates.
func (c *Connection) WindowRect(windowID xproto.Window) (x, y, width, height int, ok bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), true
}
