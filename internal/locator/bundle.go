package locator

import (
	"fmt"

	"github.com/1broseidon/printmon/internal/platform"
)

// Role is the semantic meaning of a located control.
type Role string

const (
	RoleTask          Role = "task"
	RoleMass          Role = "mass"
	RoleTotalTime     Role = "total_time"
	RoleRemainingTime Role = "remaining_time"
	RoleLayer         Role = "layer"
	RolePercent       Role = "percent"
	RoleHotend        Role = "hotend"
	RoleHotbed        Role = "hotbed"
	RoleBox           Role = "box"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{
	RoleTask,
	RoleMass,
	RoleTotalTime,
	RoleRemainingTime,
	RoleLayer,
	RolePercent,
	RoleHotend,
	RoleHotbed,
	RoleBox,
}

// RequiredRoles are the roles every successful bundle carries. Only the
// enclosure temperature may be absent.
var RequiredRoles = AllRoles[:len(AllRoles)-1]

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// HandleBundle maps roles to the handles resolved by one locate. It is never
// mutated after construction and is only meaningful for the poll that
// produced it.
type HandleBundle struct {
	pattern string
	anchor  platform.WindowID
	handles map[Role]platform.WindowID
	classes map[platform.WindowID]string
}

func newBundle(pattern string, anchor platform.WindowID, handles map[Role]platform.WindowID, tree platform.Tree) (*HandleBundle, error) {
	b := &HandleBundle{
		pattern: pattern,
		anchor:  anchor,
		handles: make(map[Role]platform.WindowID, len(handles)),
		classes: make(map[platform.WindowID]string, len(handles)+1),
	}
	for _, role := range RequiredRoles {
		if _, ok := handles[role]; !ok {
			return nil, fail(ErrContainerShapeMismatch, StageVerify, "role %s was not resolved", role)
		}
	}
	for role, id := range handles {
		b.handles[role] = id
	}
	for _, id := range append(b.ids(), anchor) {
		class := tree.ClassName(id)
		if class == "" {
			return nil, fail(ErrHandleInvalidated, StageVerify, "window %d vanished during locate", id)
		}
		b.classes[id] = class
	}
	return b, nil
}

// Get returns the handle for a role.
func (b *HandleBundle) Get(role Role) (platform.WindowID, bool) {
	if b == nil {
		return 0, false
	}
	id, ok := b.handles[role]
	return id, ok
}

// Has reports whether role was resolved.
func (b *HandleBundle) Has(role Role) bool {
	_, ok := b.Get(role)
	return ok
}

// Roles returns the resolved roles in display order.
func (b *HandleBundle) Roles() []Role {
	var out []Role
	for _, r := range AllRoles {
		if b.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Anchor returns the main window the bundle was resolved under.
func (b *HandleBundle) Anchor() platform.WindowID {
	return b.anchor
}

// Pattern returns the name of the pattern set that produced the bundle.
func (b *HandleBundle) Pattern() string {
	return b.pattern
}

// Map returns a copy of the role mapping.
func (b *HandleBundle) Map() map[Role]platform.WindowID {
	out := make(map[Role]platform.WindowID, len(b.handles))
	for r, id := range b.handles {
		out[r] = id
	}
	return out
}

// Equal reports whether two bundles resolve the same roles to the same handles.
func (b *HandleBundle) Equal(other *HandleBundle) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.anchor != other.anchor || len(b.handles) != len(other.handles) {
		return false
	}
	for r, id := range b.handles {
		if other.handles[r] != id {
			return false
		}
	}
	return true
}

func (b *HandleBundle) String() string {
	s := fmt.Sprintf("bundle[%s anchor=%d", b.pattern, b.anchor)
	for _, r := range b.Roles() {
		s += fmt.Sprintf(" %s=%d", r, b.handles[r])
	}
	return s + "]"
}

func (b *HandleBundle) ids() []platform.WindowID {
	out := make([]platform.WindowID, 0, len(b.handles))
	for _, r := range AllRoles {
		if id, ok := b.handles[r]; ok {
			out = append(out, id)
		}
	}
	return out
}
