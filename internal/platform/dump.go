package platform

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DumpVersion is the schema version written into tree dumps.
const DumpVersion = 1

// TreeDump is the on-disk form of a captured window tree.
type TreeDump struct {
	Version    int       `yaml:"version"`
	CapturedAt time.Time `yaml:"captured_at,omitempty"`
	Windows    []*Node   `yaml:"windows"`
}

// Capture copies the subtrees of the top-level windows of className out of a
// live tree. maxDepth <= 0 means unlimited.
func Capture(tree Tree, className string, maxDepth int) *TreeDump {
	dump := &TreeDump{
		Version:    DumpVersion,
		CapturedAt: time.Now().UTC(),
	}
	for _, id := range tree.TopLevelWindows(className) {
		dump.Windows = append(dump.Windows, captureNode(tree, id, 1, maxDepth))
	}
	return dump
}

func captureNode(tree Tree, id WindowID, depth, maxDepth int) *Node {
	n := &Node{
		ID:    id,
		Class: tree.ClassName(id),
		Text:  tree.Text(id),
		Rect:  tree.Rect(id),
	}
	if maxDepth > 0 && depth >= maxDepth {
		return n
	}
	for _, c := range tree.Children(id) {
		n.Children = append(n.Children, captureNode(tree, c, depth+1, maxDepth))
	}
	return n
}

// WriteDump encodes a dump as YAML.
func WriteDump(w io.Writer, dump *TreeDump) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("failed to encode tree dump: %w", err)
	}
	return enc.Close()
}

// ReadDump decodes a YAML dump. Unknown keys are rejected.
func ReadDump(r io.Reader) (*TreeDump, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var dump TreeDump
	if err := dec.Decode(&dump); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("tree dump is empty")
		}
		return nil, fmt.Errorf("failed to parse tree dump: %w", err)
	}
	if dump.Version != DumpVersion {
		return nil, fmt.Errorf("unsupported tree dump version %d (want %d)", dump.Version, DumpVersion)
	}
	return &dump, nil
}

// LoadDumpTree reads a dump file and indexes it as a MemoryTree.
func LoadDumpTree(path string) (*MemoryTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}
	defer f.Close()

	dump, err := ReadDump(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tree, err := NewMemoryTree(dump.Windows...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}
