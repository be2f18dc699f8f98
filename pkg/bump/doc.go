// Package bump computes how a requested version bump propagates through a
// Cargo workspace on both release channels.
//
// # Channels
//
// A workspace is developed on two branches: a stable line and a prerelease
// line that periodically merges into stable. Every package exists on both
// (packages only on the prerelease line are new and are never propagated
// into). The prerelease version of a package must always stay strictly ahead
// of its stable version, otherwise the merge would move a package backwards.
//
// # Building a Tree
//
// Instruction text ("core minor") is resolved against both workspaces with
// [ResolveInstruction] and the resulting roots are expanded with [NewTree]:
//
//	root, err := bump.ResolveInstruction(stableWS, preWS, "core minor", bump.Stable)
//	if err != nil { ... }
//	if root == nil { ... } // nothing to do on this channel
//	tree, err := bump.NewTree(stableWS, preWS, []*bump.Instruction{root}, bump.Stable)
//
// The tree keeps every propagation path for display, while
// [Tree.HighestStable] and [Tree.HighestPrerelease] keep only the most severe
// change per package. Only the highest maps should be applied.
//
// Building a tree never writes to disk.
package bump
