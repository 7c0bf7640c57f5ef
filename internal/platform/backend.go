package platform

// WindowID is a platform-neutral window handle. It is only valid until the
// owning application destroys the window.
type WindowID uint64

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() int {
	return r.X + r.Width
}

// Tree abstracts window-tree introspection of a foreign application.
//
// Every method fails softly: a handle that no longer exists yields an empty
// string, an empty slice or a zero Rect, never a panic or error. Children are
// returned in whatever order the window system reports them.
type Tree interface {
	TopLevelWindows(className string) []WindowID
	Children(id WindowID) []WindowID
	Text(id WindowID) string
	ClassName(id WindowID) string
	Rect(id WindowID) Rect
	Parent(id WindowID) (WindowID, bool)
}

// Closer is implemented by trees that hold a connection to the window system.
type Closer interface {
	Close()
}

// Session selects the desktop session to introspect. Empty fields fall back
// to the environment and, on X11, to session detection.
type Session struct {
	Display    string
	XAuthority string
}
