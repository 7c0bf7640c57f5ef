package locator

import (
	"testing"

	"github.com/1broseidon/printmon/internal/platform"
)

func row(t *testing.T) *platform.MemoryTree {
	t.Helper()
	tree, err := platform.NewMemoryTree(&platform.Node{
		ID: 1, Class: "root", Rect: platform.Rect{Width: 500, Height: 500},
		Children: []*platform.Node{
			{ID: 10, Class: "mid", Rect: platform.Rect{Width: 500, Height: 500}, Children: []*platform.Node{
				{ID: 11, Class: "a", Rect: platform.Rect{X: 200, Y: 0, Width: 50, Height: 10}},
				{ID: 12, Class: "b", Rect: platform.Rect{X: 0, Y: 50, Width: 50, Height: 40}},
				{ID: 13, Class: "a", Rect: platform.Rect{X: 100, Y: 0, Width: 50, Height: 10}},
				{ID: 14, Class: "a", Rect: platform.Rect{X: 100, Y: 0, Width: 50, Height: 10}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("NewMemoryTree: %v", err)
	}
	return tree
}

func TestSortByOrder(t *testing.T) {
	tree := row(t)
	ids := []platform.WindowID{14, 12, 11, 13}

	tests := []struct {
		name  string
		order Order
		want  []platform.WindowID
	}{
		{"top ties fall back to x then handle", Order{Axis: AxisTop}, []platform.WindowID{13, 14, 11, 12}},
		{"left", Order{Axis: AxisLeft}, []platform.WindowID{12, 13, 14, 11}},
		{"bottom descending", Order{Axis: AxisBottom, Descending: true}, []platform.WindowID{12, 13, 14, 11}},
		{"right", Order{Axis: AxisRight}, []platform.WindowID{12, 13, 14, 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sortByOrder(tree, append([]platform.WindowID(nil), ids...), tt.order)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestResolveByAncestorAndOrder(t *testing.T) {
	tree := row(t)
	onlyA := func(id platform.WindowID) bool { return tree.ClassName(id) == "a" }

	res, ok := resolveByAncestorAndOrder(tree, 12, 1, Order{Axis: AxisLeft}, 2, onlyA)
	if !ok {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.ancestor != 10 || res.picked != 11 || len(res.candidates) != 3 {
		t.Fatalf("unexpected resolution %+v", res)
	}

	if res, ok := resolveByAncestorAndOrder(tree, 12, 1, Order{Axis: AxisLeft}, 3, onlyA); ok {
		t.Fatalf("index past the end should fail, got %+v", res)
	}
	if res, ok := resolveByAncestorAndOrder(tree, 12, 3, Order{Axis: AxisLeft}, 0, nil); ok || res.ancestor != 0 {
		t.Fatalf("walking above the root should fail, got %+v", res)
	}
}

func TestAssignSlots(t *testing.T) {
	slots := []RoleSlot{
		{Role: RoleHotend, Index: 0},
		{Role: RoleHotbed, Index: 1},
		{Role: RoleBox, Index: 2, Optional: true},
	}

	into := map[Role]platform.WindowID{}
	if _, ok := assignSlots([]platform.WindowID{5, 6}, slots, true, into); !ok {
		t.Fatalf("optional slot should be skipped")
	}
	if len(into) != 2 || into[RoleHotend] != 5 || into[RoleHotbed] != 6 {
		t.Fatalf("unexpected assignment %v", into)
	}

	missing, ok := assignSlots([]platform.WindowID{5, 6}, slots, false, map[Role]platform.WindowID{})
	if ok || missing.Role != RoleBox {
		t.Fatalf("expected box to be reported missing, got %+v ok=%v", missing, ok)
	}

	missing, ok = assignSlots([]platform.WindowID{5}, slots, true, map[Role]platform.WindowID{})
	if ok || missing.Role != RoleHotbed {
		t.Fatalf("expected hotbed to be reported missing, got %+v ok=%v", missing, ok)
	}
}

func TestWalkDescendantsVisitsEachOnce(t *testing.T) {
	tree := row(t)
	seen := map[platform.WindowID]int{}
	walkDescendants(tree, 1, func(id platform.WindowID) { seen[id]++ })
	if len(seen) != 5 {
		t.Fatalf("visited %v", seen)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("window %d visited %d times", id, n)
		}
	}
	if seen[1] != 0 {
		t.Fatalf("root must not be visited")
	}
}

func TestNormalizeText(t *testing.T) {
	// U+00E9 versus e + combining acute accent.
	if normalizeText(" cafe\u0301 ") != normalizeText("caf\u00e9") {
		t.Fatalf("NFC forms should compare equal")
	}
}
