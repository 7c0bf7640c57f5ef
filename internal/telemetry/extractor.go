package telemetry

import (
	"fmt"
	"strings"

	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/platform"
)

// Options configure an Extractor. The zero value uses the default selector,
// no handle cache and the default parsing rules.
type Options struct {
	Selector       locator.Selector
	UseCache       bool
	BoxPlaceholder string
	LayerPrefixes  []string
	Format         FormatContext

	// OnInvalidated is told about cached bundles that failed revalidation.
	OnInvalidated func(error)
}

// Extractor locates the slicer's controls and reads a Snapshot from them.
type Extractor struct {
	tree    platform.Tree
	locator *locator.Locator
	cache   *locator.Cache
	sel     locator.Selector

	boxPlaceholder string
	layerPrefixes  []string
	format         FormatContext
}

// NewExtractor returns an extractor reading from tree.
func NewExtractor(tree platform.Tree, l *locator.Locator, opts Options) *Extractor {
	e := &Extractor{
		tree:           tree,
		locator:        l,
		sel:            opts.Selector,
		boxPlaceholder: opts.BoxPlaceholder,
		layerPrefixes:  opts.LayerPrefixes,
		format:         opts.Format,
	}
	if e.sel.ClassName == "" {
		e.sel = l.DefaultSelector()
	}
	if e.boxPlaceholder == "" {
		e.boxPlaceholder = DefaultBoxPlaceholder
	}
	if e.layerPrefixes == nil {
		e.layerPrefixes = DefaultLayerPrefixes
	}
	if e.format.Now == nil {
		e.format.Now = DefaultFormatContext().Now
	}
	if opts.UseCache {
		e.cache = &locator.Cache{OnInvalidated: opts.OnInvalidated}
	}
	return e
}

// Tree returns the window tree the extractor reads.
func (e *Extractor) Tree() platform.Tree {
	return e.tree
}

// Locate resolves the handle bundle, through the cache when enabled.
func (e *Extractor) Locate() (*locator.HandleBundle, error) {
	if e.cache != nil {
		return e.cache.Resolve(e.tree, e.locator, e.sel)
	}
	return e.locator.Locate(e.tree, e.sel)
}

// Poll locates the controls and reads their current values. A nil snapshot
// and an error mean no data is available this tick.
func (e *Extractor) Poll() (*Snapshot, error) {
	b, err := e.Locate()
	if err != nil {
		return nil, err
	}
	snap, err := e.read(b)
	if err != nil {
		if e.cache != nil {
			e.cache.Reset()
		}
		return nil, err
	}
	return snap, nil
}

func (e *Extractor) text(b *locator.HandleBundle, role locator.Role) string {
	id, ok := b.Get(role)
	if !ok {
		return ""
	}
	return strings.TrimSpace(e.tree.Text(id))
}

func (e *Extractor) read(b *locator.HandleBundle) (*Snapshot, error) {
	percent, err := ParsePercent(e.text(b, locator.RolePercent))
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Task:          e.text(b, locator.RoleTask),
		Mass:          e.text(b, locator.RoleMass),
		TotalTime:     StripSign(e.text(b, locator.RoleTotalTime)),
		RemainingTime: StripSign(e.text(b, locator.RoleRemainingTime)),
		Layer:         StripLayerPrefix(e.text(b, locator.RoleLayer), e.layerPrefixes),
		Percent:       percent,
		Hotend:        e.text(b, locator.RoleHotend),
		Hotbed:        e.text(b, locator.RoleHotbed),
		Pattern:       b.Pattern(),
		At:            e.format.Now(),
	}
	if b.Has(locator.RoleBox) {
		snap.Box = BoxValue(e.text(b, locator.RoleBox), e.boxPlaceholder)
	}
	if d, ok := ParseRemaining(snap.RemainingTime); ok {
		snap.Remaining = d
		snap.HasRemaining = true
		snap.ETA = e.format.ETA(d)
	}

	// Text read from a window destroyed mid-poll is empty, not stale; make
	// sure every handle outlived the reads.
	if err := locator.Validate(e.tree, b, e.sel); err != nil {
		return nil, fmt.Errorf("controls changed while reading: %w", err)
	}
	return snap, nil
}
