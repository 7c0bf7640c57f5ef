package locator

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/1broseidon/printmon/internal/platform"
)

// EnclosurePolicy decides whether a tree with only two temperature panels is
// acceptable.
type EnclosurePolicy string

const (
	// EnclosureOptional resolves hotend and hotbed from two panels and leaves
	// the box role absent.
	EnclosureOptional EnclosurePolicy = "optional"
	// EnclosureRequired fails unless all three panels are present.
	EnclosureRequired EnclosurePolicy = "required"
)

// Selector identifies the foreign application's main window.
type Selector struct {
	ClassName string
}

// Locator resolves handle bundles from a window tree using one pattern set.
// It holds no state between calls.
type Locator struct {
	set       *PatternSet
	enclosure EnclosurePolicy
}

// New returns a locator for a validated pattern set.
func New(set *PatternSet, enclosure EnclosurePolicy) (*Locator, error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("pattern set %q: %w", set.Name, err)
	}
	switch enclosure {
	case "":
		enclosure = EnclosureOptional
	case EnclosureOptional, EnclosureRequired:
	default:
		return nil, fmt.Errorf("unknown enclosure policy %q", enclosure)
	}
	return &Locator{set: set, enclosure: enclosure}, nil
}

// PatternSet returns the set this locator applies.
func (l *Locator) PatternSet() *PatternSet {
	return l.set
}

// DefaultSelector selects the pattern set's anchor class.
func (l *Locator) DefaultSelector() Selector {
	return Selector{ClassName: l.set.AnchorClass}
}

// Locate runs every stage against the current tree. It returns either a
// complete bundle or a *LocateError; there are no partial results.
func (l *Locator) Locate(tree platform.Tree, sel Selector) (*HandleBundle, error) {
	p := l.set
	if sel.ClassName == "" {
		sel = l.DefaultSelector()
	}

	anchor, err := l.findAnchor(tree, sel)
	if err != nil {
		return nil, err
	}

	landmark, err := l.findLandmark(tree, anchor)
	if err != nil {
		return nil, err
	}

	// The landmark's ancestor holds the stacked panels; the control panel
	// sits at a fixed position in it.
	cp, ok := resolveByAncestorAndOrder(tree, landmark, p.ControlPanel.LevelsUp, p.ControlPanel.Order, p.ControlPanel.Index, nil)
	if !ok {
		if cp.ancestor == 0 {
			return nil, fail(ErrContainerShapeMismatch, StageControlPanel, "landmark has fewer than %d ancestors", p.ControlPanel.LevelsUp)
		}
		return nil, fail(ErrContainerShapeMismatch, StageControlPanel, "container %d has %d children, need index %d", cp.ancestor, len(cp.candidates), p.ControlPanel.Index)
	}
	handles := make(map[Role]platform.WindowID, len(AllRoles))

	panels := orderedChildren(tree, cp.picked, p.Temperatures.Order, func(id platform.WindowID) bool {
		return p.Temperatures.Member.matches(tree, id)
	})
	if slot, ok := assignSlots(panels, p.Temperatures.Slots, l.enclosure == EnclosureOptional, handles); !ok {
		return nil, fail(ErrContainerShapeMismatch, StageTemperatures, "found %d temperature panels, %s needs index %d", len(panels), slot.Role, slot.Index)
	}

	origin := cp.ancestor
	bottom, ok := resolveByAncestorAndOrder(tree, origin, p.BottomContainer.LevelsUp, p.BottomContainer.Order, p.BottomContainer.Index, func(id platform.WindowID) bool {
		if p.BottomContainer.ExcludeOrigin && id == origin {
			return false
		}
		return p.BottomContainer.Member.matches(tree, id)
	})
	if !ok {
		return nil, fail(ErrContainerShapeMismatch, StageBottomContainer, "%d candidates match %s", len(bottom.candidates), p.BottomContainer.Member)
	}

	if _, err := l.findRow(tree, bottom.picked, p.TaskRow, StageTaskRow, handles); err != nil {
		return nil, err
	}

	progressRow, err := l.findRow(tree, bottom.picked, p.ProgressRow, StageProgressRow, handles)
	if err != nil {
		return nil, err
	}
	if _, err := l.findRow(tree, progressRow, p.ProgressTriple, StageProgressTriple, handles); err != nil {
		return nil, err
	}

	return newBundle(p.Name, anchor, handles, tree)
}

func (l *Locator) findAnchor(tree platform.Tree, sel Selector) (platform.WindowID, error) {
	windows := tree.TopLevelWindows(sel.ClassName)
	switch len(windows) {
	case 0:
		return 0, fail(ErrAnchorNotFound, StageAnchor, "no top-level window of class %q", sel.ClassName)
	case 1:
		return windows[0], nil
	default:
		return 0, fail(ErrAmbiguousAnchor, StageAnchor, "%d top-level windows of class %q", len(windows), sel.ClassName)
	}
}

func normalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func (l *Locator) findLandmark(tree platform.Tree, anchor platform.WindowID) (platform.WindowID, error) {
	lm := l.set.Landmark
	want := normalizeText(lm.Text)

	var matches []platform.WindowID
	visit := func(id platform.WindowID) {
		if lm.Class != "" && tree.ClassName(id) != lm.Class {
			return
		}
		if normalizeText(tree.Text(id)) == want {
			matches = append(matches, id)
		}
	}

	if lm.Scope == ScopeChildren {
		for _, c := range tree.Children(anchor) {
			visit(c)
		}
	} else {
		walkDescendants(tree, anchor, visit)
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return 0, fail(ErrLandmarkNotFound, StageLandmark, "no %s window with text %q", lm.Class, lm.Text)
	default:
		return 0, fail(ErrLandmarkNotFound, StageLandmark, "%d windows with text %q, want exactly 1", len(matches), lm.Text)
	}
}

// walkDescendants visits every window below root breadth-first. Handles seen
// twice are skipped so a misbehaving adapter cannot loop forever.
func walkDescendants(tree platform.Tree, root platform.WindowID, visit func(platform.WindowID)) {
	seen := map[platform.WindowID]bool{root: true}
	queue := []platform.WindowID{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range tree.Children(cur) {
			if seen[c] {
				continue
			}
			seen[c] = true
			visit(c)
			queue = append(queue, c)
		}
	}
}

// findRow finds the unique child of parent matching rp.Member and assigns its
// ordered children to rp.Slots.
func (l *Locator) findRow(tree platform.Tree, parent platform.WindowID, rp RowPattern, stage Stage, into map[Role]platform.WindowID) (platform.WindowID, error) {
	var matches []platform.WindowID
	for _, c := range tree.Children(parent) {
		if rp.Member.matches(tree, c) {
			matches = append(matches, c)
		}
	}
	if len(matches) != 1 {
		return 0, fail(ErrContainerShapeMismatch, stage, "%d children of %d match %s, want exactly 1", len(matches), parent, rp.Member)
	}
	row := matches[0]
	if len(rp.Slots) == 0 {
		return row, nil
	}

	cells := orderedChildren(tree, row, rp.Order, nil)
	if slot, ok := assignSlots(cells, rp.Slots, false, into); !ok {
		return 0, fail(ErrContainerShapeMismatch, stage, "row %d has %d cells, %s needs index %d", row, len(cells), slot.Role, slot.Index)
	}
	return row, nil
}
