package locator_test

import (
	"errors"
	"testing"

	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/locator/locatortest"
	"github.com/1broseidon/printmon/internal/platform"
)

func TestCache_ReusesValidBundle(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")

	var c locator.Cache
	first, err := c.Resolve(fx.Tree, l, locator.Selector{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := c.Resolve(fx.Tree, l, locator.Selector{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first != second {
		t.Fatalf("expected the cached bundle to be reused")
	}
}

func TestCache_InvalidatesDestroyedHandle(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")

	var invalidations []error
	c := locator.Cache{OnInvalidated: func(err error) { invalidations = append(invalidations, err) }}
	if _, err := c.Resolve(fx.Tree, l, locator.Selector{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	fx.Tree.Destroy(locatortest.PercentCell)
	b, err := c.Resolve(fx.Tree, l, locator.Selector{})
	if b != nil {
		t.Fatalf("expected no bundle after the percent cell vanished")
	}
	if locator.StageOf(err) != locator.StageProgressTriple {
		t.Fatalf("full relocate should fail at the progress triple, got %v", err)
	}
	if len(invalidations) != 1 || !errors.Is(invalidations[0], locator.ErrHandleInvalidated) {
		t.Fatalf("expected one invalidation, got %v", invalidations)
	}
}

func TestCache_RelocatesAfterWindowRebuilt(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")

	var c locator.Cache
	if _, err := c.Resolve(fx.Tree, l, locator.Selector{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// The slicer rebuilt its window: same layout, different handles.
	rebuilt := locatortest.Bambu(locatortest.Defaults())
	shifted, err := platform.NewMemoryTree(shift(rebuilt.Tree.Roots(), 10000)...)
	if err != nil {
		t.Fatalf("NewMemoryTree: %v", err)
	}
	b, err := c.Resolve(shifted, l, locator.Selector{})
	if err != nil {
		t.Fatalf("Resolve after rebuild: %v", err)
	}
	if got, _ := b.Get(locator.RolePercent); got != locatortest.PercentCell+10000 {
		t.Fatalf("percent handle = %d, want %d", got, locatortest.PercentCell+10000)
	}
}

func TestCache_ValidateRejectsClassChange(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")
	b, err := l.Locate(fx.Tree, l.DefaultSelector())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if err := locator.Validate(fx.Tree, b, l.DefaultSelector()); err != nil {
		t.Fatalf("fresh bundle should validate: %v", err)
	}

	n, _ := fx.Tree.Node(locatortest.MassCell)
	n.Class = "Button"
	err = locator.Validate(fx.Tree, b, l.DefaultSelector())
	if !errors.Is(err, locator.ErrHandleInvalidated) {
		t.Fatalf("expected ErrHandleInvalidated, got %v", err)
	}
	if locator.StageOf(err) != locator.StageCache {
		t.Fatalf("stage = %q", locator.StageOf(err))
	}

	if err := locator.Validate(fx.Tree, nil, l.DefaultSelector()); !errors.Is(err, locator.ErrHandleInvalidated) {
		t.Fatalf("nil bundle: expected ErrHandleInvalidated, got %v", err)
	}
}

func TestCache_AnchorMovedUnderNewTopLevel(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")
	sel := l.DefaultSelector()

	var c locator.Cache
	if _, err := c.Resolve(fx.Tree, l, sel); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Same nodes, now wrapped by a new top-level frame of the anchor class.
	rewrapped, err := platform.NewMemoryTree(&platform.Node{
		ID:       9000,
		Class:    sel.ClassName,
		Rect:     platform.Rect{Width: 1600, Height: 1000},
		Children: fx.Tree.Roots(),
	})
	if err != nil {
		t.Fatalf("NewMemoryTree: %v", err)
	}

	b, _ := l.Locate(fx.Tree, sel)
	if err := locator.Validate(rewrapped, b, sel); !errors.Is(err, locator.ErrHandleInvalidated) {
		t.Fatalf("expected ErrHandleInvalidated, got %v", err)
	}

	want, wantErr := l.Locate(rewrapped, sel)
	got, gotErr := c.Resolve(rewrapped, l, sel)
	if (wantErr == nil) != (gotErr == nil) {
		t.Fatalf("cached err = %v, fresh err = %v", gotErr, wantErr)
	}
	if wantErr != nil {
		if locator.StageOf(gotErr) != locator.StageOf(wantErr) {
			t.Fatalf("cached stage %q, fresh stage %q", locator.StageOf(gotErr), locator.StageOf(wantErr))
		}
		return
	}
	if !want.Equal(got) {
		t.Fatalf("cache changed the result:\ncached %v\nfresh  %v", got, want)
	}
	if got.Anchor() == locatortest.MainWindow {
		t.Fatalf("cache kept the stale anchor %d", got.Anchor())
	}
}

func TestCache_SecondAnchorInvalidates(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")
	sel := l.DefaultSelector()

	b, err := l.Locate(fx.Tree, sel)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	roots := append([]*platform.Node{}, fx.Tree.Roots()...)
	roots = append(roots, &platform.Node{ID: 9100, Class: sel.ClassName})
	two, err := platform.NewMemoryTree(roots...)
	if err != nil {
		t.Fatalf("NewMemoryTree: %v", err)
	}
	if err := locator.Validate(two, b, sel); !errors.Is(err, locator.ErrHandleInvalidated) {
		t.Fatalf("expected ErrHandleInvalidated with two anchors, got %v", err)
	}
}

func TestCache_Reset(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")

	var c locator.Cache
	first, _ := c.Resolve(fx.Tree, l, locator.Selector{})
	c.Reset()
	second, err := c.Resolve(fx.Tree, l, locator.Selector{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first == second {
		t.Fatalf("Reset should force a fresh locate")
	}
	if !first.Equal(second) {
		t.Fatalf("fresh locate on an unchanged tree should match")
	}
}

func shift(nodes []*platform.Node, by platform.WindowID) []*platform.Node {
	out := make([]*platform.Node, len(nodes))
	for i, n := range nodes {
		cp := *n
		cp.ID += by
		cp.Children = shift(n.Children, by)
		out[i] = &cp
	}
	return out
}
