package locator

import (
	"sync"

	"github.com/1broseidon/printmon/internal/platform"
)

// Cache keeps the last successful bundle and reuses it only after checking
// that the anchor is still the only top-level match for the selector and
// that every cached handle still reports the class it had when located.
// It is advisory: a bundle failing these checks is dropped and relocated.
type Cache struct {
	mu   sync.Mutex
	last *HandleBundle
	sel  Selector

	// OnInvalidated, if set, is called with an ErrHandleInvalidated error
	// whenever a cached bundle fails revalidation.
	OnInvalidated func(error)
}

// Validate checks a bundle against the current tree.
func Validate(tree platform.Tree, b *HandleBundle, sel Selector) error {
	if b == nil {
		return fail(ErrHandleInvalidated, StageCache, "no cached bundle")
	}
	if got := tree.ClassName(b.anchor); got != sel.ClassName || got != b.classes[b.anchor] {
		return fail(ErrHandleInvalidated, StageCache, "anchor %d now has class %q", b.anchor, got)
	}
	// Top-level membership comes from the adapter; X11 clients sit under a
	// window manager frame, so Parent is not consulted.
	if tops := tree.TopLevelWindows(sel.ClassName); len(tops) != 1 || tops[0] != b.anchor {
		return fail(ErrHandleInvalidated, StageCache, "anchor %d is no longer the only %q window (%d found)", b.anchor, sel.ClassName, len(tops))
	}
	for _, role := range AllRoles {
		id, ok := b.handles[role]
		if !ok {
			continue
		}
		if got, want := tree.ClassName(id), b.classes[id]; got != want {
			return fail(ErrHandleInvalidated, StageCache, "%s handle %d now has class %q, was %q", role, id, got, want)
		}
	}
	return nil
}

// Resolve returns the cached bundle when it is still valid and otherwise
// locates from scratch, replacing the cache on success and clearing it on
// failure.
func (c *Cache) Resolve(tree platform.Tree, l *Locator, sel Selector) (*HandleBundle, error) {
	if sel.ClassName == "" {
		sel = l.DefaultSelector()
	}

	c.mu.Lock()
	last, lastSel := c.last, c.sel
	c.mu.Unlock()

	if last != nil && lastSel == sel && last.pattern == l.set.Name {
		err := Validate(tree, last, sel)
		if err == nil {
			return last, nil
		}
		if c.OnInvalidated != nil {
			c.OnInvalidated(err)
		}
	}

	b, err := l.Locate(tree, sel)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.last = nil
		return nil, err
	}
	c.last, c.sel = b, sel
	return b, nil
}

// Reset drops the cached bundle.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}
