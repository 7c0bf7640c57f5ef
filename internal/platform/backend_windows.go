//go:build windows

package platform

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumChildWindows     = user32.NewProc("EnumChildWindows")
	procGetParent            = user32.NewProc("GetParent")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
)

// Enumeration callbacks are allocated once: windows.NewCallback slots are
// never released.
var (
	enumMu       sync.Mutex
	enumSink     []windows.HWND
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumSink = append(enumSink, hwnd)
		return 1
	})
)

// Win32Tree exposes the desktop window hierarchy through user32.
type Win32Tree struct{}

var _ Tree = (*Win32Tree)(nil)

// NewNativeTree returns the user32-backed tree. The session is ignored;
// user32 always sees the caller's desktop.
func NewNativeTree(s Session) (Tree, error) {
	return &Win32Tree{}, nil
}

// Close is a no-op; user32 holds no per-tree state.
func (t *Win32Tree) Close() {}

func enumerate(parent windows.HWND) []windows.HWND {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumSink = nil
	if parent == 0 {
		_ = windows.EnumWindows(enumCallback, nil)
	} else {
		procEnumChildWindows.Call(uintptr(parent), enumCallback, 0)
	}
	out := enumSink
	enumSink = nil
	return out
}

func parentOf(hwnd windows.HWND) windows.HWND {
	r, _, _ := procGetParent.Call(uintptr(hwnd))
	return windows.HWND(r)
}

func (t *Win32Tree) TopLevelWindows(className string) []WindowID {
	var out []WindowID
	for _, hwnd := range enumerate(0) {
		if classNameOf(hwnd) == className && parentOf(hwnd) == 0 {
			out = append(out, WindowID(hwnd))
		}
	}
	return out
}

// Children keeps only the descendants whose parent is id; EnumChildWindows
// walks the whole subtree.
func (t *Win32Tree) Children(id WindowID) []WindowID {
	hwnd := windows.HWND(id)
	if !windows.IsWindow(hwnd) {
		return nil
	}
	var out []WindowID
	for _, child := range enumerate(hwnd) {
		if parentOf(child) == hwnd {
			out = append(out, WindowID(child))
		}
	}
	return out
}

func (t *Win32Tree) Text(id WindowID) string {
	hwnd := windows.HWND(id)
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	copied, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:copied])
}

func (t *Win32Tree) ClassName(id WindowID) string {
	return classNameOf(windows.HWND(id))
}

func classNameOf(hwnd windows.HWND) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(hwnd, &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func (t *Win32Tree) Rect(id WindowID) Rect {
	var r windows.Rect
	ok, _, _ := procGetWindowRect.Call(uintptr(id), uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return Rect{}
	}
	return Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}
}

func (t *Win32Tree) Parent(id WindowID) (WindowID, bool) {
	p := parentOf(windows.HWND(id))
	if p == 0 {
		return 0, false
	}
	return WindowID(p), true
}
