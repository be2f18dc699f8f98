// Package git wraps the git command line for the few operations a release
// needs: branch inspection, fetching, worktrees and commits.
//
// Commands run through a [Runner] so tests can substitute a fake:
//
//	repo := git.Open(dir)
//	if err := repo.RequireClean(ctx); err != nil {
//	    return err
//	}
//	wt, err := repo.AddWorktree(ctx, tmp, "", "prerelease")
//
// Failures are returned as GIT_FAILED errors carrying git's output.
package git
