package locator

import (
	"sort"

	"github.com/1broseidon/printmon/internal/platform"
)

type placed struct {
	id   platform.WindowID
	rect platform.Rect
}

func (p placed) edge(axis Axis) int {
	switch axis {
	case AxisLeft:
		return p.rect.X
	case AxisBottom:
		return p.rect.Bottom()
	case AxisRight:
		return p.rect.Right()
	default:
		return p.rect.Y
	}
}

// sortByOrder orders ids along o. Ties fall back to top, left and finally the
// handle value, so the result never depends on enumeration order.
func sortByOrder(tree platform.Tree, ids []platform.WindowID, o Order) []platform.WindowID {
	items := make([]placed, len(ids))
	for i, id := range ids {
		items[i] = placed{id: id, rect: tree.Rect(id)}
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ea, eb := a.edge(o.Axis), b.edge(o.Axis); ea != eb {
			if o.Descending {
				return ea > eb
			}
			return ea < eb
		}
		if a.rect.Y != b.rect.Y {
			return a.rect.Y < b.rect.Y
		}
		if a.rect.X != b.rect.X {
			return a.rect.X < b.rect.X
		}
		return a.id < b.id
	})
	out := make([]platform.WindowID, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

// ancestor walks up levels parents. ok is false if the chain ends early.
func ancestor(tree platform.Tree, id platform.WindowID, levels int) (platform.WindowID, bool) {
	cur := id
	for i := 0; i < levels; i++ {
		parent, ok := tree.Parent(cur)
		if !ok {
			return 0, false
		}
		cur = parent
	}
	return cur, true
}

// orderedChildren returns the direct children of parent accepted by keep
// (nil keeps all), sorted by o.
func orderedChildren(tree platform.Tree, parent platform.WindowID, o Order, keep func(platform.WindowID) bool) []platform.WindowID {
	var kept []platform.WindowID
	for _, c := range tree.Children(parent) {
		if keep == nil || keep(c) {
			kept = append(kept, c)
		}
	}
	return sortByOrder(tree, kept, o)
}

// resolution is the outcome of resolveByAncestorAndOrder.
type resolution struct {
	ancestor   platform.WindowID
	candidates []platform.WindowID
	picked     platform.WindowID
}

// resolveByAncestorAndOrder walks levelsUp parents from node, orders the
// ancestor's children accepted by keep and picks the one at index. ok is
// false when the ancestor chain is too short or index is out of range; the
// partial resolution is still returned for diagnostics.
func resolveByAncestorAndOrder(tree platform.Tree, node platform.WindowID, levelsUp int, o Order, index int, keep func(platform.WindowID) bool) (resolution, bool) {
	anc, ok := ancestor(tree, node, levelsUp)
	if !ok {
		return resolution{}, false
	}
	res := resolution{
		ancestor:   anc,
		candidates: orderedChildren(tree, anc, o, keep),
	}
	if index < 0 || index >= len(res.candidates) {
		return res, false
	}
	res.picked = res.candidates[index]
	return res, true
}

// assignSlots maps roles onto an ordered list. Optional slots beyond the end
// of the list are skipped when allowOptional is set; everything else missing
// reports the first unfilled slot.
func assignSlots(ordered []platform.WindowID, slots []RoleSlot, allowOptional bool, into map[Role]platform.WindowID) (RoleSlot, bool) {
	for _, slot := range slots {
		if slot.Index < len(ordered) {
			into[slot.Role] = ordered[slot.Index]
			continue
		}
		if slot.Optional && allowOptional {
			continue
		}
		return slot, false
	}
	return RoleSlot{}, true
}
