package bump

import "github.com/matzehuels/wsbump/pkg/version"

// Node is one package in a bump tree with its change on each channel.
// At least one side is always set.
type Node struct {
	Stable     *Instruction
	Prerelease *Instruction
	Children   []*Node
}

// PackageName returns the name of the package the node changes.
func (n *Node) PackageName() string {
	switch {
	case n.Stable != nil:
		return n.Stable.Name()
	case n.Prerelease != nil:
		return n.Prerelease.Name()
	default:
		panic("bump: node has neither a stable nor a prerelease instruction")
	}
}

// Equal compares both sides of two nodes. Children are not compared.
func (n *Node) Equal(o *Node) bool {
	return n.Stable.Equal(o.Stable) && n.Prerelease.Equal(o.Prerelease)
}

// Magnitude returns the magnitude of the node's change on ch and whether the
// node has a change on that channel at all.
func (n *Node) Magnitude(ch Channel) (version.Magnitude, bool) {
	inst := n.Side(ch)
	if inst == nil {
		return 0, false
	}
	return inst.Magnitude(), true
}

// Side returns the node's instruction on ch, or nil.
func (n *Node) Side(ch Channel) *Instruction {
	if ch == Prerelease {
		return n.Prerelease
	}
	return n.Stable
}

// Walk calls fn for n and every descendant in depth-first pre-order.
// Packages reachable by several paths are visited once per path.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}
