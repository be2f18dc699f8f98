package bump

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/wsbump/pkg/version"
)

// RenderOptions configures [Render].
type RenderOptions struct {
	// Color highlights major changes in red and the rest in blue.
	Color bool
}

var (
	styleMajor = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
	styleOther = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	styleName  = lipgloss.NewStyle().Bold(true)
)

// Render draws the tree with box-drawing connectors, one line per node:
//
//	name stable(cur -> next) prerelease(cur -> next)
//
// Root nodes are always drawn. Below them only nodes that are the recorded
// highest change for their package are drawn, so superseded paths are
// hidden. The output ends with the number of packages updated.
func Render(t *Tree, opts RenderOptions) string {
	var b strings.Builder
	for _, root := range t.Roots {
		renderNode(&b, t, root, "", "", opts)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Packages updated: %d\n", len(t.Packages()))
	return b.String()
}

func renderNode(b *strings.Builder, t *Tree, n *Node, prefix, connector string, opts RenderOptions) {
	name := n.PackageName()
	if opts.Color {
		name = styleName.Render(name)
	}
	b.WriteString(prefix + connector + name)
	if n.Stable != nil {
		b.WriteString(" stable(" + change(n.Stable, opts) + ")")
	}
	if n.Prerelease != nil {
		b.WriteString(" prerelease(" + change(n.Prerelease, opts) + ")")
	}
	b.WriteString("\n")

	var visible []*Node
	for _, c := range n.Children {
		if t.IsHighest(c) {
			visible = append(visible, c)
		}
	}

	childPrefix := prefix
	switch connector {
	case "├── ":
		childPrefix += "│   "
	case "└── ":
		childPrefix += "    "
	}
	for i, c := range visible {
		conn := "├── "
		if i == len(visible)-1 {
			conn = "└── "
		}
		renderNode(b, t, c, childPrefix, conn, opts)
	}
}

func change(i *Instruction, opts RenderOptions) string {
	s := fmt.Sprintf("%s -> %s", i.Current(), i.Next)
	if !opts.Color {
		return s
	}
	if i.Magnitude() == version.Major {
		return styleMajor.Render(s)
	}
	return styleOther.Render(s)
}

// Change is one planned version change in a [Summary].
type Change struct {
	Package   string `json:"package"`
	Channel   string `json:"channel"`
	Current   string `json:"current"`
	Next      string `json:"next"`
	Magnitude string `json:"magnitude"`
	Advisory  string `json:"advisory,omitempty"`
}

// Summary is the serialisable form of a tree's authoritative changes.
type Summary struct {
	Channel    string   `json:"channel"`
	Stable     []Change `json:"stable"`
	Prerelease []Change `json:"prerelease"`
	Packages   int      `json:"packages_updated"`
}

// Summarize lists the highest change per package on each channel.
func Summarize(t *Tree) Summary {
	return Summary{
		Channel:    t.Channel.String(),
		Stable:     changes(t, Stable),
		Prerelease: changes(t, Prerelease),
		Packages:   len(t.Packages()),
	}
}

func changes(t *Tree, ch Channel) []Change {
	insts := t.Changes(ch)
	out := make([]Change, 0, len(insts))
	for _, i := range insts {
		m := i.Magnitude()
		out = append(out, Change{
			Package:   i.Name(),
			Channel:   ch.String(),
			Current:   i.Current().String(),
			Next:      i.Next.String(),
			Magnitude: m.String(),
			Advisory:  version.Advisory(i.Current(), m),
		})
	}
	return out
}
