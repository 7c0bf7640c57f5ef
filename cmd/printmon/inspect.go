package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/1broseidon/printmon/internal/config"
	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/platform"
)

func runLocate(args []string) int {
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/printmon/config.yaml)")
	treeFile := fs.String("tree", "", "Locate in a tree dump instead of the live desktop")
	pattern := fs.String("pattern", "", "Pattern set to use (default: pattern_set from config)")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: printmon locate [--path PATH] [--tree FILE] [--pattern NAME] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Locate the slicer's status controls and print the handle for each role.")
		fmt.Fprintln(os.Stderr, "Exits 1 and names the failing stage when they cannot be found.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config
	if *pattern != "" {
		cfg.PatternSet = *pattern
	}

	var tree platform.Tree
	if *treeFile != "" {
		tree, err = platform.LoadDumpTree(*treeFile)
	} else {
		tree, err = platform.NewNativeTree(sessionOf(cfg))
		if err == nil {
			defer closeTree(tree)()
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return locateIn(os.Stdout, cfg, tree, *asJSON)
}

type locateResult struct {
	Found   bool                               `json:"found"`
	Pattern string                             `json:"pattern"`
	Anchor  platform.WindowID                  `json:"anchor,omitempty"`
	Handles map[locator.Role]platform.WindowID `json:"handles,omitempty"`
	Error   string                             `json:"error,omitempty"`
	Stage   locator.Stage                      `json:"stage,omitempty"`
}

func locateIn(w io.Writer, cfg *config.Config, tree platform.Tree, asJSON bool) int {
	l, err := cfg.NewLocator()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	out := locateResult{Pattern: cfg.PatternSet}
	b, err := l.Locate(tree, cfg.Selector())
	if err != nil {
		out.Error = err.Error()
		out.Stage = locator.StageOf(err)
	} else {
		out.Found = true
		out.Anchor = b.Anchor()
		out.Handles = b.Map()
	}

	if asJSON {
		if err := writeJSON(w, out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else if !out.Found {
		printUnavailable(w, err)
	} else {
		fmt.Fprintf(w, "pattern: %s\n", out.Pattern)
		fmt.Fprintf(w, "anchor:  %d\n", out.Anchor)
		for _, role := range b.Roles() {
			id, _ := b.Get(role)
			text := tree.Text(id)
			fmt.Fprintf(w, "  %-15s %-10d %q\n", role, id, text)
		}
	}
	if !out.Found {
		return 1
	}
	return 0
}

func runDump(args []string) int {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/printmon/config.yaml)")
	outFile := fs.String("out", "", "Write the dump to FILE instead of stdout")
	depth := fs.Int("depth", 0, "Maximum depth to capture (0 = unlimited)")
	class := fs.String("class", "", "Top-level window class to capture (default: window_class from config)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: printmon dump [--path PATH] [--out FILE] [--depth N] [--class CLASS]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Capture the slicer's window tree as YAML. The dump can be replayed with")
		fmt.Fprintln(os.Stderr, "'printmon locate --tree FILE'.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *depth < 0 {
		fmt.Fprintln(os.Stderr, "--depth must be >= 0")
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config
	className := *class
	if className == "" {
		className = cfg.WindowClass
	}

	tree, err := platform.NewNativeTree(sessionOf(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeTree(tree)()

	dump := platform.Capture(tree, className, *depth)
	if len(dump.Windows) == 0 {
		fmt.Fprintf(os.Stderr, "no top-level windows of class %q\n", className)
		return 1
	}

	w := io.Writer(os.Stdout)
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := platform.WriteDump(w, dump); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *outFile != "" {
		fmt.Fprintf(os.Stderr, "wrote %d window(s) to %s\n", len(dump.Windows), *outFile)
	}
	return 0
}

func sortedPatternNames(sets map[string]*locator.PatternSet) []string {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
