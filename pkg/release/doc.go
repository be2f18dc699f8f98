// Package release runs the workflows that change versions on disk: planning
// and applying bump trees across the stable and prerelease branches, syncing
// manifests with crates.io, and the one-off maintenance rewrites.
//
// # Bumping
//
// A bump is run from the checkout of one channel's branch. The other
// channel's branch is checked out into a temporary git worktree so both
// workspaces can be loaded side by side:
//
//	r := release.NewRunner(".")
//	plan, err := r.Plan(ctx, release.Options{
//	    Channel:      bump.Stable,
//	    Instructions: []string{"core minor"},
//	    OtherBranch:  "next",
//	})
//	if err != nil {
//	    return err
//	}
//	defer plan.Close(ctx)
//	res, err := r.Apply(ctx, plan, opts)
//
// Stable bumps commit to the current branch. When the prerelease side also
// changes, those writes are committed on a new branch named by
// [PropagationBranch], created from the prerelease branch, ready for review.
//
// # Syncing
//
// [Sync] looks every publishable package up on the registry and sets its
// manifest version to the published maximum.
package release
