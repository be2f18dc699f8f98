package git

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/matzehuels/wsbump/pkg/errors"
)

// Runner executes git with args in dir and returns combined output.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// ExecRunner runs the git binary found on PATH.
func ExecRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// Repo is a git working tree.
type Repo struct {
	Dir string
	run Runner
}

// Open returns a Repo for dir backed by the git binary.
func Open(dir string) *Repo {
	return &Repo{Dir: dir, run: ExecRunner}
}

// NewWithRunner returns a Repo that executes commands through run.
func NewWithRunner(dir string, run Runner) *Repo {
	return &Repo{Dir: dir, run: run}
}

// At returns a Repo for another working tree sharing the same runner.
func (r *Repo) At(dir string) *Repo {
	return &Repo{Dir: dir, run: r.run}
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	out, err := r.run(ctx, r.Dir, args...)
	text := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if text == "" {
			return "", errors.Wrap(errors.ErrCodeGit, err, "git %s", strings.Join(args, " "))
		}
		return "", errors.Wrap(errors.ErrCodeGit, err, "git %s: %s", strings.Join(args, " "), text)
	}
	return text, nil
}

// CurrentBranch returns the checked-out branch name. A detached HEAD is an
// error.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	name, err := r.git(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeGit, err, "HEAD is detached or not pointing to a branch")
	}
	return name, nil
}

// TopLevel returns the absolute path of the working tree root.
func (r *Repo) TopLevel(ctx context.Context) (string, error) {
	return r.git(ctx, "rev-parse", "--show-toplevel")
}

// IsClean reports whether the working tree has no tracked or untracked
// changes.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	out, err := r.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// RequireClean returns a DIRTY_WORKTREE error if the working tree has
// changes.
func (r *Repo) RequireClean(ctx context.Context) error {
	clean, err := r.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return errors.New(errors.ErrCodeDirtyWorktree, "working tree %s is not clean; commit or stash your changes", r.Dir)
	}
	return nil
}

// Fetch fetches branches from remote without tags.
func (r *Repo) Fetch(ctx context.Context, remote string, branches ...string) error {
	args := append([]string{"fetch", "--no-tags", remote}, branches...)
	_, err := r.git(ctx, args...)
	return err
}

// FastForward moves the local branch to remote/branch. It fails if the
// branch has diverged. The branch must not be checked out in another
// working tree.
func (r *Repo) FastForward(ctx context.Context, remote, branch string) error {
	current, err := r.CurrentBranch(ctx)
	if err == nil && current == branch {
		_, err = r.git(ctx, "merge", "--ff-only", remote+"/"+branch)
		return err
	}
	_, err = r.git(ctx, "fetch", "--no-tags", remote, branch+":"+branch)
	return err
}

// AddWorktree checks out ref into a new working tree at path. With a
// non-empty branch, the branch is created (or reset) at ref and checked out;
// otherwise HEAD is detached.
func (r *Repo) AddWorktree(ctx context.Context, path, branch, ref string) (*Repo, error) {
	args := []string{"worktree", "add"}
	if branch != "" {
		args = append(args, "-B", branch)
	} else {
		args = append(args, "--detach")
	}
	args = append(args, path, ref)
	if _, err := r.git(ctx, args...); err != nil {
		return nil, err
	}
	return r.At(path), nil
}

// RemoveWorktree deletes the working tree at path and prunes its metadata.
func (r *Repo) RemoveWorktree(ctx context.Context, path string) error {
	_, err := r.git(ctx, "worktree", "remove", "--force", path)
	return err
}

// CreateBranch creates name at start and checks it out, replacing any
// existing local branch of that name.
func (r *Repo) CreateBranch(ctx context.Context, name, start string) error {
	_, err := r.git(ctx, "checkout", "-B", name, start)
	return err
}

// Checkout switches to an existing branch.
func (r *Repo) Checkout(ctx context.Context, branch string) error {
	_, err := r.git(ctx, "checkout", branch)
	return err
}

// RestoreFile resets path to its committed content. Missing files are not
// an error.
func (r *Repo) RestoreFile(ctx context.Context, path string) error {
	if _, err := r.git(ctx, "ls-files", "--error-unmatch", path); err != nil {
		return nil
	}
	_, err := r.git(ctx, "checkout", "HEAD", "--", path)
	return err
}

// CommitAll stages every change and commits it, returning the new commit
// hash.
func (r *Repo) CommitAll(ctx context.Context, message string) (string, error) {
	if _, err := r.git(ctx, "add", "--all"); err != nil {
		return "", err
	}
	if _, err := r.git(ctx, "commit", "--quiet", "-m", message); err != nil {
		return "", err
	}
	return r.git(ctx, "rev-parse", "HEAD")
}
