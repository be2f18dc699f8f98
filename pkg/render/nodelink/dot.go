package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/wsbump/pkg/bump"
	"github.com/matzehuels/wsbump/pkg/dag"
	"github.com/matzehuels/wsbump/pkg/version"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the release layer and metadata in node labels.
	// When false, only the package name is shown.
	Detailed bool
}

const header = `digraph G {
  rankdir=BT;
  bgcolor="transparent";
  node [shape=box, style="rounded,filled", fillcolor=white, fontsize=14, margin="0.2,0.1"];
  ranksep=0.5;
  nodesep=0.3;

`

// ToDOT converts a workspace dependency graph to Graphviz DOT. Edges point
// from a package to its dependency and the layout is bottom-to-top, so leaf
// libraries sit at the bottom. Packages with publish = false are dashed.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(header)

	for _, n := range g.Nodes() {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(*n, opts.Detailed))}
		if publish, ok := n.Meta[dag.MetaPublish].(bool); ok && !publish {
			attrs = append(attrs, `style="rounded,filled,dashed"`, "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n dag.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}

	parts := []string{fmt.Sprintf("layer: %d", n.Row)}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		if k == dag.MetaPath {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}

	return n.ID + "\n" + strings.Join(parts, "\n")
}

// TreeToDOT converts a bump tree to Graphviz DOT. Each changed package
// appears once, labelled with its highest change per channel; edges follow
// the propagation paths that produced those changes. Packages with a major
// change on any channel are filled red.
func TreeToDOT(t *bump.Tree) string {
	var buf bytes.Buffer
	buf.WriteString(strings.Replace(header, "rankdir=BT", "rankdir=TB", 1))

	for _, name := range t.Packages() {
		lines := []string{name}
		major := false
		for _, ch := range []bump.Channel{bump.Stable, bump.Prerelease} {
			highest := t.HighestStable
			if ch == bump.Prerelease {
				highest = t.HighestPrerelease
			}
			n, ok := highest[name]
			if !ok {
				continue
			}
			inst := n.Side(ch)
			lines = append(lines, fmt.Sprintf("%s: %s -> %s", ch, inst.Current(), inst.Next))
			major = major || inst.Magnitude() == version.Major
		}
		attrs := []string{fmt.Sprintf("label=%q", strings.Join(lines, "\n"))}
		if major {
			attrs = append(attrs, `fillcolor="#f4b6b0"`)
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	seen := make(map[[2]string]bool)
	var walk func(n *bump.Node)
	walk = func(n *bump.Node) {
		for _, c := range n.Children {
			if !t.IsHighest(c) {
				continue
			}
			edge := [2]string{n.PackageName(), c.PackageName()}
			if !seen[edge] {
				seen[edge] = true
				fmt.Fprintf(&buf, "  %q -> %q;\n", edge[0], edge[1])
			}
			walk(c)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
