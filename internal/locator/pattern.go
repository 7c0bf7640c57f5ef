package locator

import (
	"fmt"
	"sort"

	"github.com/1broseidon/printmon/internal/platform"
)

// Axis selects the rectangle edge used to order siblings.
type Axis string

const (
	AxisTop    Axis = "top"
	AxisLeft   Axis = "left"
	AxisBottom Axis = "bottom"
	AxisRight  Axis = "right"
)

func (a Axis) valid() bool {
	switch a {
	case AxisTop, AxisLeft, AxisBottom, AxisRight:
		return true
	}
	return false
}

// Order sorts siblings along an axis.
type Order struct {
	Axis       Axis `yaml:"axis" json:"axis"`
	Descending bool `yaml:"descending,omitempty" json:"descending,omitempty"`
}

// Scope controls how far the landmark search reaches below the anchor.
type Scope string

const (
	ScopeDescendants Scope = "descendants"
	ScopeChildren    Scope = "children"
)

// Shape describes the local structure a window must have to match.
// Zero-valued fields are not checked.
type Shape struct {
	Class      string `yaml:"class,omitempty" json:"class,omitempty"`
	Children   *int   `yaml:"children,omitempty" json:"children,omitempty"`
	MoreThan   *int   `yaml:"more_than,omitempty" json:"more_than,omitempty"`
	ChildClass string `yaml:"child_class,omitempty" json:"child_class,omitempty"`
}

func (s Shape) matches(tree platform.Tree, id platform.WindowID) bool {
	if s.Class != "" && tree.ClassName(id) != s.Class {
		return false
	}
	if s.Children == nil && s.MoreThan == nil && s.ChildClass == "" {
		return true
	}
	children := tree.Children(id)
	if s.Children != nil && len(children) != *s.Children {
		return false
	}
	if s.MoreThan != nil && len(children) <= *s.MoreThan {
		return false
	}
	if s.ChildClass != "" {
		for _, c := range children {
			if tree.ClassName(c) != s.ChildClass {
				return false
			}
		}
	}
	return true
}

func (s Shape) String() string {
	out := "shape{"
	if s.Class != "" {
		out += " class=" + s.Class
	}
	if s.Children != nil {
		out += fmt.Sprintf(" children=%d", *s.Children)
	}
	if s.MoreThan != nil {
		out += fmt.Sprintf(" more_than=%d", *s.MoreThan)
	}
	if s.ChildClass != "" {
		out += " child_class=" + s.ChildClass
	}
	return out + " }"
}

// RoleSlot binds a role to a position in an ordered sibling list.
type RoleSlot struct {
	Role     Role `yaml:"role" json:"role"`
	Index    int  `yaml:"index" json:"index"`
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// LandmarkPattern finds a control by its literal text. The landmark only
// anchors geometry; its value is never read.
type LandmarkPattern struct {
	Text  string `yaml:"text" json:"text"`
	Class string `yaml:"class,omitempty" json:"class,omitempty"`
	Scope Scope  `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// AncestorPattern walks up from a node, orders the ancestor's children and
// picks one by index.
type AncestorPattern struct {
	LevelsUp int   `yaml:"levels_up" json:"levels_up"`
	Order    Order `yaml:"order" json:"order"`
	Index    int   `yaml:"index" json:"index"`
}

// GroupPattern keeps the children matching Member, orders them and assigns
// roles to positions.
type GroupPattern struct {
	Member Shape      `yaml:"member" json:"member"`
	Order  Order      `yaml:"order" json:"order"`
	Slots  []RoleSlot `yaml:"slots" json:"slots"`
}

// BottomPattern picks a sibling container of the control panel's parent by
// shape and edge ordering.
type BottomPattern struct {
	LevelsUp      int   `yaml:"levels_up" json:"levels_up"`
	Member        Shape `yaml:"member" json:"member"`
	ExcludeOrigin bool  `yaml:"exclude_origin" json:"exclude_origin"`
	Order         Order `yaml:"order" json:"order"`
	Index         int   `yaml:"index" json:"index"`
}

// RowPattern finds exactly one child matching Member. When Slots is set the
// row's own children are ordered and assigned to roles.
type RowPattern struct {
	Member Shape      `yaml:"member" json:"member"`
	Order  Order      `yaml:"order,omitempty" json:"order,omitempty"`
	Slots  []RoleSlot `yaml:"slots,omitempty" json:"slots,omitempty"`
}

// PatternSet is one versioned description of a foreign UI layout. Supporting
// a new UI version means adding a set, not changing the traversal.
type PatternSet struct {
	Name            string          `yaml:"name" json:"name"`
	Version         int             `yaml:"version" json:"version"`
	Description     string          `yaml:"description,omitempty" json:"description,omitempty"`
	AnchorClass     string          `yaml:"anchor_class" json:"anchor_class"`
	Landmark        LandmarkPattern `yaml:"landmark" json:"landmark"`
	ControlPanel    AncestorPattern `yaml:"control_panel" json:"control_panel"`
	Temperatures    GroupPattern    `yaml:"temperatures" json:"temperatures"`
	BottomContainer BottomPattern   `yaml:"bottom_container" json:"bottom_container"`
	TaskRow         RowPattern      `yaml:"task_row" json:"task_row"`
	ProgressRow     RowPattern      `yaml:"progress_row" json:"progress_row"`
	ProgressTriple  RowPattern      `yaml:"progress_triple" json:"progress_triple"`
}

// Validate checks that the set is internally consistent and resolves every
// required role exactly once.
func (p *PatternSet) Validate() error {
	if p == nil {
		return fmt.Errorf("pattern set is nil")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	if p.AnchorClass == "" {
		return fmt.Errorf("anchor_class is required")
	}
	if p.Landmark.Text == "" {
		return fmt.Errorf("landmark.text is required")
	}
	switch p.Landmark.Scope {
	case "", ScopeDescendants, ScopeChildren:
	default:
		return fmt.Errorf("landmark.scope must be one of: descendants, children")
	}
	if p.ControlPanel.LevelsUp < 1 {
		return fmt.Errorf("control_panel.levels_up must be >= 1")
	}
	if p.BottomContainer.LevelsUp < 1 {
		return fmt.Errorf("bottom_container.levels_up must be >= 1")
	}
	if p.ControlPanel.Index < 0 || p.BottomContainer.Index < 0 {
		return fmt.Errorf("indexes must be >= 0")
	}

	orders := map[string]Order{
		"control_panel.order":    p.ControlPanel.Order,
		"temperatures.order":     p.Temperatures.Order,
		"bottom_container.order": p.BottomContainer.Order,
	}
	if len(p.TaskRow.Slots) > 0 {
		orders["task_row.order"] = p.TaskRow.Order
	}
	if len(p.ProgressTriple.Slots) > 0 {
		orders["progress_triple.order"] = p.ProgressTriple.Order
	}
	for path, o := range orders {
		if !o.Axis.valid() {
			return fmt.Errorf("%s.axis must be one of: top, left, bottom, right", path)
		}
	}

	seen := make(map[Role]string)
	groups := []struct {
		path  string
		slots []RoleSlot
	}{
		{"temperatures.slots", p.Temperatures.Slots},
		{"task_row.slots", p.TaskRow.Slots},
		{"progress_row.slots", p.ProgressRow.Slots},
		{"progress_triple.slots", p.ProgressTriple.Slots},
	}
	for _, g := range groups {
		for _, slot := range g.slots {
			if !slot.Role.Valid() {
				return fmt.Errorf("%s: unknown role %q", g.path, slot.Role)
			}
			if slot.Index < 0 {
				return fmt.Errorf("%s: %s index must be >= 0", g.path, slot.Role)
			}
			if prev, dup := seen[slot.Role]; dup {
				return fmt.Errorf("%s: role %s already assigned in %s", g.path, slot.Role, prev)
			}
			if slot.Optional && slot.Role != RoleBox {
				return fmt.Errorf("%s: only the box role may be optional", g.path)
			}
			seen[slot.Role] = g.path
		}
	}
	for _, role := range RequiredRoles {
		if _, ok := seen[role]; !ok {
			return fmt.Errorf("role %s is not assigned to any slot", role)
		}
	}
	return nil
}

func intp(v int) *int { return &v }

// bambuStudio builds the layout shared by all localisations of the slicer's
// device page; only the landmark text differs.
func bambuStudio(name, description, landmark string) *PatternSet {
	return &PatternSet{
		Name:        name,
		Version:     1,
		Description: description,
		AnchorClass: "wxWindowNR",
		Landmark: LandmarkPattern{
			Text:  landmark,
			Class: "wxWindowNR",
			Scope: ScopeDescendants,
		},
		ControlPanel: AncestorPattern{
			LevelsUp: 2,
			Order:    Order{Axis: AxisTop},
			Index:    1,
		},
		Temperatures: GroupPattern{
			Member: Shape{Children: intp(1), ChildClass: "Edit"},
			Order:  Order{Axis: AxisTop},
			Slots: []RoleSlot{
				{Role: RoleHotend, Index: 0},
				{Role: RoleHotbed, Index: 1},
				{Role: RoleBox, Index: 2, Optional: true},
			},
		},
		BottomContainer: BottomPattern{
			LevelsUp:      1,
			Member:        Shape{MoreThan: intp(10)},
			ExcludeOrigin: true,
			Order:         Order{Axis: AxisBottom, Descending: true},
			Index:         0,
		},
		TaskRow: RowPattern{
			Member: Shape{Class: "wxWindowNR", Children: intp(5), ChildClass: "Static"},
			Order:  Order{Axis: AxisLeft},
			Slots: []RoleSlot{
				{Role: RoleTask, Index: 0},
				{Role: RoleTotalTime, Index: 2},
				{Role: RoleMass, Index: 4},
			},
		},
		ProgressRow: RowPattern{
			Member: Shape{Children: intp(2), ChildClass: "wxWindowNR"},
		},
		ProgressTriple: RowPattern{
			Member: Shape{Children: intp(4)},
			Order:  Order{Axis: AxisLeft},
			Slots: []RoleSlot{
				{Role: RolePercent, Index: 0},
				{Role: RoleLayer, Index: 2},
				{Role: RoleRemainingTime, Index: 3},
			},
		},
	}
}

const DefaultPatternSet = "bambu-studio-zh"

// BuiltinPatternSets returns fresh copies of the pattern sets shipped with
// printmon, keyed by name.
func BuiltinPatternSets() map[string]*PatternSet {
	sets := []*PatternSet{
		bambuStudio(DefaultPatternSet, "Bambu Studio device page, Simplified Chinese UI", "打印选项"),
		bambuStudio("bambu-studio-en", "Bambu Studio device page, English UI", "Print Options"),
	}
	out := make(map[string]*PatternSet, len(sets))
	for _, s := range sets {
		out[s.Name] = s
	}
	return out
}

// PatternSetNames returns the names in a registry, sorted.
func PatternSetNames(sets map[string]*PatternSet) []string {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
