package locator_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/locator/locatortest"
	"github.com/1broseidon/printmon/internal/platform"
)

func newLocator(t *testing.T, name string, policy locator.EnclosurePolicy) *locator.Locator {
	t.Helper()
	set, ok := locator.BuiltinPatternSets()[name]
	if !ok {
		t.Fatalf("builtin pattern set %q missing", name)
	}
	l, err := locator.New(set, policy)
	if err != nil {
		t.Fatalf("locator.New: %v", err)
	}
	return l
}

func assertBundle(t *testing.T, b *locator.HandleBundle, want map[locator.Role]platform.WindowID) {
	t.Helper()
	got := b.Map()
	if len(got) != len(want) {
		t.Fatalf("bundle has %d roles %v, want %d", len(got), got, len(want))
	}
	for role, id := range want {
		if got[role] != id {
			t.Errorf("role %s = %d, want %d", role, got[role], id)
		}
	}
}

func TestLocate_FullTreeResolvesAllRoles(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, locator.EnclosureOptional)

	b, err := l.Locate(fx.Tree, l.DefaultSelector())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	assertBundle(t, b, fx.Expected)
	if b.Anchor() != locatortest.MainWindow {
		t.Errorf("anchor = %d, want %d", b.Anchor(), locatortest.MainWindow)
	}
	if b.Pattern() != locator.DefaultPatternSet {
		t.Errorf("pattern = %q", b.Pattern())
	}
	if got := len(b.Roles()); got != len(locator.AllRoles) {
		t.Errorf("Roles() has %d entries, want %d", got, len(locator.AllRoles))
	}
}

func TestLocate_EnglishLandmark(t *testing.T) {
	opts := locatortest.Defaults()
	opts.LandmarkText = "Print Options"
	fx := locatortest.Bambu(opts)

	l := newLocator(t, "bambu-studio-en", "")
	b, err := l.Locate(fx.Tree, locator.Selector{})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	assertBundle(t, b, fx.Expected)

	// The Chinese set must not match an English UI.
	zh := newLocator(t, locator.DefaultPatternSet, "")
	if _, err := zh.Locate(fx.Tree, locator.Selector{}); !errors.Is(err, locator.ErrLandmarkNotFound) {
		t.Fatalf("expected ErrLandmarkNotFound, got %v", err)
	}
}

func TestLocate_EnclosurePolicy(t *testing.T) {
	opts := locatortest.Defaults()
	opts.NoBox = true
	fx := locatortest.Bambu(opts)

	t.Run("optional resolves eight roles", func(t *testing.T) {
		l := newLocator(t, locator.DefaultPatternSet, locator.EnclosureOptional)
		b, err := l.Locate(fx.Tree, locator.Selector{})
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		assertBundle(t, b, fx.Expected)
		if b.Has(locator.RoleBox) {
			t.Fatalf("box should be absent")
		}
	})

	t.Run("required fails at temperature stage", func(t *testing.T) {
		l := newLocator(t, locator.DefaultPatternSet, locator.EnclosureRequired)
		b, err := l.Locate(fx.Tree, locator.Selector{})
		if b != nil {
			t.Fatalf("expected no bundle, got %v", b)
		}
		if !errors.Is(err, locator.ErrContainerShapeMismatch) {
			t.Fatalf("expected ErrContainerShapeMismatch, got %v", err)
		}
		if stage := locator.StageOf(err); stage != locator.StageTemperatures {
			t.Fatalf("stage = %q, want %q", stage, locator.StageTemperatures)
		}
	})
}

func TestLocate_OnlyOneTemperaturePanelFails(t *testing.T) {
	opts := locatortest.Defaults()
	opts.NoBox = true
	fx := locatortest.Bambu(opts)
	fx.Tree.Destroy(locatortest.HotbedPanel)

	l := newLocator(t, locator.DefaultPatternSet, locator.EnclosureOptional)
	_, err := l.Locate(fx.Tree, locator.Selector{})
	if locator.StageOf(err) != locator.StageTemperatures {
		t.Fatalf("expected temperature stage failure, got %v", err)
	}
}

func TestLocate_MissingLandmark(t *testing.T) {
	opts := locatortest.Defaults()
	opts.LandmarkText = "设备"
	fx := locatortest.Bambu(opts)
	l := newLocator(t, locator.DefaultPatternSet, "")

	b, err := l.Locate(fx.Tree, locator.Selector{})
	if b != nil {
		t.Fatalf("expected no partial bundle, got %v", b)
	}
	if !errors.Is(err, locator.ErrLandmarkNotFound) {
		t.Fatalf("expected ErrLandmarkNotFound, got %v", err)
	}
	if locator.StageOf(err) != locator.StageLandmark {
		t.Fatalf("stage = %q", locator.StageOf(err))
	}
}

func TestLocate_AnchorFailures(t *testing.T) {
	l := newLocator(t, locator.DefaultPatternSet, "")

	opts := locatortest.Defaults()
	opts.TwoAnchors = true
	fx := locatortest.Bambu(opts)
	if _, err := l.Locate(fx.Tree, locator.Selector{}); !errors.Is(err, locator.ErrAmbiguousAnchor) {
		t.Fatalf("expected ErrAmbiguousAnchor, got %v", err)
	}

	fx = locatortest.Bambu(locatortest.Defaults())
	_, err := l.Locate(fx.Tree, locator.Selector{ClassName: "Qt5QWindowIcon"})
	if !errors.Is(err, locator.ErrAnchorNotFound) {
		t.Fatalf("expected ErrAnchorNotFound, got %v", err)
	}
	if err.Error() == "" || locator.StageOf(err) != locator.StageAnchor {
		t.Fatalf("unexpected error %v", err)
	}

	fx.Tree.Destroy(locatortest.MainWindow)
	if _, err := l.Locate(fx.Tree, locator.Selector{}); !errors.Is(err, locator.ErrAnchorNotFound) {
		t.Fatalf("destroyed main window: expected ErrAnchorNotFound, got %v", err)
	}
}

func TestLocate_ShapeMismatchStages(t *testing.T) {
	l := newLocator(t, locator.DefaultPatternSet, "")

	tests := []struct {
		name    string
		destroy []platform.WindowID
		stage   locator.Stage
	}{
		{"control panel index out of range", []platform.WindowID{locatortest.ControlPanel, 1240}, locator.StageControlPanel},
		{"no bottom container", []platform.WindowID{locatortest.BottomContainer, locatortest.DecorContainer}, locator.StageBottomContainer},
		{"task row missing", []platform.WindowID{locatortest.TaskRow}, locator.StageTaskRow},
		{"progress row missing", []platform.WindowID{locatortest.ProgressRow}, locator.StageProgressRow},
		{"progress triple lost a cell", []platform.WindowID{1324}, locator.StageProgressTriple},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := locatortest.Bambu(locatortest.Defaults())
			for _, id := range tt.destroy {
				fx.Tree.Destroy(id)
			}
			b, err := l.Locate(fx.Tree, locator.Selector{})
			if b != nil {
				t.Fatalf("expected no bundle")
			}
			if !errors.Is(err, locator.ErrContainerShapeMismatch) {
				t.Fatalf("expected ErrContainerShapeMismatch, got %v", err)
			}
			if got := locator.StageOf(err); got != tt.stage {
				t.Fatalf("stage = %q, want %q (%v)", got, tt.stage, err)
			}
		})
	}
}

func TestLocate_BottomContainerFallsBackToNextLargest(t *testing.T) {
	// Without the real bottom container the decorative strip is picked; it
	// has no task row.
	fx := locatortest.Bambu(locatortest.Defaults())
	fx.Tree.Destroy(locatortest.BottomContainer)

	l := newLocator(t, locator.DefaultPatternSet, "")
	_, err := l.Locate(fx.Tree, locator.Selector{})
	if locator.StageOf(err) != locator.StageTaskRow {
		t.Fatalf("expected task row failure, got %v", err)
	}
}

func TestLocate_Idempotent(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")

	first, err := l.Locate(fx.Tree, locator.Selector{})
	if err != nil {
		t.Fatalf("first Locate: %v", err)
	}
	second, err := l.Locate(fx.Tree, locator.Selector{})
	if err != nil {
		t.Fatalf("second Locate: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("bundles differ:\n%v\n%v", first, second)
	}
}

func TestLocate_IndependentOfEnumerationOrder(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l := newLocator(t, locator.DefaultPatternSet, "")
	want, err := l.Locate(fx.Tree, locator.Selector{})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	reverse := func(ids []platform.WindowID) {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	fx.Tree.SetOrder(reverse)
	got, err := l.Locate(fx.Tree, locator.Selector{})
	if err != nil {
		t.Fatalf("Locate reversed: %v", err)
	}
	if !want.Equal(got) {
		t.Fatalf("reversed order changed the bundle:\n%v\n%v", want, got)
	}

	rng := rand.New(rand.NewSource(7))
	fx.Tree.SetOrder(func(ids []platform.WindowID) {
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	})
	for i := 0; i < 25; i++ {
		got, err := l.Locate(fx.Tree, locator.Selector{})
		if err != nil {
			t.Fatalf("Locate shuffled #%d: %v", i, err)
		}
		if !want.Equal(got) {
			t.Fatalf("shuffle #%d changed the bundle:\n%v\n%v", i, want, got)
		}
	}
}

func TestLocate_HandleVanishingMidPollIsNotACrash(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	fx.Tree.Destroy(locatortest.Body)

	l := newLocator(t, locator.DefaultPatternSet, "")
	b, err := l.Locate(fx.Tree, locator.Selector{})
	if b != nil || err == nil {
		t.Fatalf("expected failure, got %v, %v", b, err)
	}
	if !errors.Is(err, locator.ErrLandmarkNotFound) {
		t.Fatalf("expected ErrLandmarkNotFound, got %v", err)
	}
}

func TestLocate_LandmarkTextIsNormalized(t *testing.T) {
	opts := locatortest.Defaults()
	opts.LandmarkText = "  打印选项\n"
	fx := locatortest.Bambu(opts)

	l := newLocator(t, locator.DefaultPatternSet, "")
	if _, err := l.Locate(fx.Tree, locator.Selector{}); err != nil {
		t.Fatalf("Locate with padded landmark: %v", err)
	}
}

func TestLocate_DuplicateLandmarkFails(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	fx.Tree.SetText(locatortest.TaskRow, "打印选项")

	l := newLocator(t, locator.DefaultPatternSet, "")
	_, err := l.Locate(fx.Tree, locator.Selector{})
	if !errors.Is(err, locator.ErrLandmarkNotFound) {
		t.Fatalf("expected ErrLandmarkNotFound for two landmarks, got %v", err)
	}
}
