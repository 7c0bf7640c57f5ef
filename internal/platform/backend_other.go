//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
)

// NewNativeTree reports that no window-system backend exists for this OS.
// Offline replay through MemoryTree still works.
func NewNativeTree(s Session) (Tree, error) {
	return nil, fmt.Errorf("window tree introspection is not supported on %s", runtime.GOOS)
}
