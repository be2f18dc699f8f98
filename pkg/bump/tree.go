package bump

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// Tree is the full propagation of a set of root instructions through the
// workspace dependency graph.
//
// Roots keeps every path, so a package reachable from two roots appears
// twice. HighestStable and HighestPrerelease hold, per package, the node
// with the most severe change on that channel; they are the authoritative
// record of what to apply.
type Tree struct {
	Channel           Channel
	Roots             []*Node
	HighestStable     map[string]*Node
	HighestPrerelease map[string]*Node
}

type builder struct {
	stable     *workspace.Workspace
	prerelease *workspace.Workspace
	tree       *Tree
	path       []string
}

// NewTree propagates roots through both workspaces.
//
// Roots on the prerelease channel only change the prerelease line. Roots on
// the stable channel also carry the prerelease change needed to keep the
// prerelease line ahead of the new stable version.
//
// Every dependent of a changed package is visited. On stable a major parent
// gives the dependent a (derived) major bump and anything else a patch; on
// prerelease the dependent is reconciled with [ReconcilePrerelease]. A
// dependent that ends up with no change on either channel stops propagation.
//
// An error is returned if the combined dependents of the two workspaces form
// a cycle.
func NewTree(stable, prerelease *workspace.Workspace, roots []*Instruction, ch Channel) (*Tree, error) {
	b := &builder{
		stable:     stable,
		prerelease: prerelease,
		tree: &Tree{
			Channel:           ch,
			HighestStable:     make(map[string]*Node),
			HighestPrerelease: make(map[string]*Node),
		},
	}

	for _, root := range roots {
		node := &Node{Prerelease: root}
		if ch == Stable {
			name := root.Name()
			pre, _ := prerelease.Package(name)
			st, _ := stable.Package(name)
			node = &Node{
				Stable:     root,
				Prerelease: ReconcilePrerelease(pre, st, root, nil),
			}
		}
		if err := b.build(node); err != nil {
			return nil, err
		}
		b.tree.Roots = append(b.tree.Roots, node)
	}
	return b.tree, nil
}

func (b *builder) build(n *Node) error {
	name := n.PackageName()
	if i := slices.Index(b.path, name); i >= 0 {
		cycle := append(slices.Clone(b.path[i:]), name)
		return errors.New(errors.ErrCodeDependencyCycle, "bump propagation revisits %s: %s", name, strings.Join(cycle, " -> "))
	}
	b.path = append(b.path, name)
	defer func() { b.path = b.path[:len(b.path)-1] }()

	for _, dep := range n.dependents() {
		st, _ := b.stable.Package(dep)
		pre, _ := b.prerelease.Package(dep)

		var stableChild *Instruction
		if n.Stable != nil && st != nil {
			m := version.Patch
			if n.Stable.Magnitude() == version.Major {
				m = version.Major
			}
			stableChild = &Instruction{
				Package: st,
				Channel: Stable,
				Next:    version.Bump(st.Version(), m, version.Derived),
			}
		}
		child := &Node{
			Stable:     stableChild,
			Prerelease: ReconcilePrerelease(pre, st, stableChild, n.Prerelease),
		}
		if child.Stable == nil && child.Prerelease == nil {
			continue
		}
		if err := b.build(child); err != nil {
			return err
		}
		n.Children = append(n.Children, child)
	}

	b.register(n)
	return nil
}

// dependents returns the sorted union of the direct dependents of each side.
func (n *Node) dependents() []string {
	var deps []string
	if n.Stable != nil {
		deps = append(deps, n.Stable.Package.Dependents()...)
	}
	if n.Prerelease != nil {
		deps = append(deps, n.Prerelease.Package.Dependents()...)
	}
	slices.Sort(deps)
	return slices.Compact(deps)
}

// register records n as the highest node for its package on each channel
// where its change is strictly more severe than the one already recorded.
func (b *builder) register(n *Node) {
	if n.Stable != nil {
		promote(b.tree.HighestStable, n, Stable)
	}
	if n.Prerelease != nil {
		promote(b.tree.HighestPrerelease, n, Prerelease)
	}
}

func promote(highest map[string]*Node, n *Node, ch Channel) {
	inst := n.Side(ch)
	cur, ok := highest[inst.Name()]
	if !ok || inst.Magnitude() > cur.Side(ch).Magnitude() {
		highest[inst.Name()] = n
	}
}

// Changes returns the authoritative instructions for ch sorted by package name.
func (t *Tree) Changes(ch Channel) []*Instruction {
	highest := t.HighestStable
	if ch == Prerelease {
		highest = t.HighestPrerelease
	}
	out := make([]*Instruction, 0, len(highest))
	for _, name := range slices.Sorted(maps.Keys(highest)) {
		out = append(out, highest[name].Side(ch))
	}
	return out
}

// Packages returns the sorted names of every package changed on any channel.
func (t *Tree) Packages() []string {
	names := slices.Collect(maps.Keys(t.HighestStable))
	names = append(names, slices.Collect(maps.Keys(t.HighestPrerelease))...)
	slices.Sort(names)
	return slices.Compact(names)
}

// IsHighest reports whether n is the recorded highest node for its package on
// either channel.
func (t *Tree) IsHighest(n *Node) bool {
	name := n.PackageName()
	return t.HighestStable[name] == n || t.HighestPrerelease[name] == n
}

// Empty reports whether the tree changes nothing.
func (t *Tree) Empty() bool {
	return len(t.HighestStable) == 0 && len(t.HighestPrerelease) == 0
}
