package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/wsbump/pkg/bump"
	"github.com/matzehuels/wsbump/pkg/cargo"
	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/git"
	"github.com/matzehuels/wsbump/pkg/observability"
	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// DefaultRemote is the git remote fetched from when none is configured.
const DefaultRemote = "origin"

// Lockfile is the name of the lockfile restored and regenerated around
// version writes.
const Lockfile = "Cargo.lock"

// Options configures a bump.
type Options struct {
	Root         string       // Workspace directory on the current checkout
	Channel      bump.Channel // Channel the instructions target
	Instructions []string     // "name magnitude" texts
	OtherBranch  string       // Prerelease branch for stable bumps, stable branch for prerelease bumps
	Remote       string       // Remote used by Fetch (default "origin")
	Fetch        bool         // Fetch and fast-forward both branches before planning
	NoLockfile   bool         // Skip regenerating Cargo.lock
	WorktreeDir  string       // Parent for the temporary checkout (default os.TempDir)

	// Logger receives a message followed by key/value pairs. Defaults to a
	// no-op.
	Logger func(string, ...any)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Validate reports option errors that would otherwise surface half-way
// through planning.
func (o Options) Validate() error {
	if len(o.Instructions) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one bump instruction is required")
	}
	if o.OtherBranch == "" {
		other := "prerelease"
		if o.Channel == bump.Prerelease {
			other = "stable"
		}
		return errors.New(errors.ErrCodeInvalidInput, "the %s branch is required", other)
	}
	return nil
}

// Runner executes release operations against a git checkout.
type Runner struct {
	Git   *git.Repo
	Cargo *cargo.Tool
}

// NewRunner returns a Runner for the checkout at dir using the git and
// cargo binaries.
func NewRunner(dir string) *Runner {
	return &Runner{Git: git.Open(dir), Cargo: cargo.New()}
}

// Plan is a fully built bump tree together with the two checkouts it was
// computed from. Close must be called to remove the temporary checkout.
type Plan struct {
	ID           string
	Channel      bump.Channel
	Branch       string // Branch of the current checkout
	OtherBranch  string
	Roots        []*bump.Instruction
	Skipped      []string // Instructions that resolved to no change
	Tree         *bump.Tree
	Stable       *workspace.Workspace
	Prerelease   *workspace.Workspace
	CreatedAt    time.Time
	worktree     string
	worktreeRepo *git.Repo
	rel          string // Workspace root relative to the repository top level
	repo         *git.Repo
}

// Other returns the workspace loaded from the temporary checkout.
func (p *Plan) Other() *workspace.Workspace {
	if p.Channel == bump.Stable {
		return p.Prerelease
	}
	return p.Stable
}

// Close removes the temporary checkout.
func (p *Plan) Close(ctx context.Context) error {
	if p.worktree == "" {
		return nil
	}
	err := p.repo.RemoveWorktree(ctx, p.worktree)
	_ = os.RemoveAll(filepath.Dir(p.worktree))
	p.worktree = ""
	return err
}

// Plan loads both channel workspaces and builds the bump tree for the
// instructions. Nothing is written. Instructions that fail to parse or name
// an unknown package abort planning; instructions that need no change are
// logged and recorded in Plan.Skipped.
func (r *Runner) Plan(ctx context.Context, opts Options) (plan *Plan, err error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	hooks := observability.Release()
	start := time.Now()
	hooks.OnPlanStart(ctx, opts.Channel.String(), len(opts.Instructions))
	defer func() {
		changed := 0
		if plan != nil {
			changed = len(plan.Tree.Packages())
		}
		hooks.OnPlanComplete(ctx, opts.Channel.String(), changed, time.Since(start), err)
	}()

	if err := r.Git.RequireClean(ctx); err != nil {
		return nil, err
	}
	branch, err := r.Git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if branch == opts.OtherBranch {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is checked out; run from the other channel's branch", branch)
	}

	if opts.Fetch {
		opts.Logger("fetching", "remote", opts.Remote, "branches", []string{branch, opts.OtherBranch})
		if err := r.Git.Fetch(ctx, opts.Remote, branch, opts.OtherBranch); err != nil {
			return nil, err
		}
		for _, b := range []string{branch, opts.OtherBranch} {
			if err := r.Git.FastForward(ctx, opts.Remote, b); err != nil {
				return nil, errors.Wrap(errors.ErrCodeGit, err, "unable to fast-forward %s; sync it with %s and try again", b, opts.Remote)
			}
		}
	}

	plan = &Plan{
		ID:          uuid.NewString(),
		Channel:     opts.Channel,
		Branch:      branch,
		OtherBranch: opts.OtherBranch,
		CreatedAt:   time.Now(),
		repo:        r.Git,
	}
	defer func() {
		if err != nil {
			_ = plan.Close(ctx)
			plan = nil
		}
	}()

	current, other, err := r.loadWorkspaces(ctx, plan, opts)
	if err != nil {
		return plan, err
	}
	plan.Stable, plan.Prerelease = current, other
	if opts.Channel == bump.Prerelease {
		plan.Stable, plan.Prerelease = other, current
	}

	for _, text := range opts.Instructions {
		root, err := bump.ResolveInstruction(plan.Stable, plan.Prerelease, text, opts.Channel)
		if err != nil {
			return plan, err
		}
		if root == nil {
			opts.Logger("no change needed", "instruction", text, "channel", opts.Channel)
			plan.Skipped = append(plan.Skipped, text)
			continue
		}
		if slices.ContainsFunc(plan.Roots, root.Equal) {
			continue
		}
		if _, m, err := bump.ParseInstruction(text); err == nil {
			if st, ok := plan.Stable.Package(root.Name()); ok {
				if note := version.Advisory(st.Version(), m); note != "" {
					opts.Logger(note, "package", root.Name())
				}
			}
		}
		plan.Roots = append(plan.Roots, root)
	}

	plan.Tree, err = bump.NewTree(plan.Stable, plan.Prerelease, plan.Roots, opts.Channel)
	if err != nil {
		return plan, err
	}
	return plan, nil
}

func (r *Runner) loadWorkspaces(ctx context.Context, plan *Plan, opts Options) (current, other *workspace.Workspace, err error) {
	logger := func(msg string, args ...any) { opts.Logger(fmt.Sprintf(msg, args...)) }

	current, err = workspace.Load(opts.Root, workspace.Options{Branch: plan.Branch, Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	top, err := r.Git.TopLevel(ctx)
	if err != nil {
		return nil, nil, err
	}
	rel, err := relativeRoot(top, current.Root)
	if err != nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidPath, "workspace %s is outside repository %s", current.Root, top)
	}

	parent, err := os.MkdirTemp(opts.WorktreeDir, "wsbump-")
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create temporary checkout")
	}
	path := filepath.Join(parent, "checkout")
	wt, err := r.Git.AddWorktree(ctx, path, "", opts.OtherBranch)
	if err != nil {
		_ = os.RemoveAll(parent)
		return nil, nil, err
	}
	plan.worktree, plan.worktreeRepo, plan.rel = path, wt, rel
	opts.Logger("checked out", "branch", opts.OtherBranch, "path", path)

	other, err = workspace.Load(filepath.Join(path, rel), workspace.Options{Branch: opts.OtherBranch, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return current, other, nil
}

// relativeRoot returns root relative to the repository top level, resolving
// symlinks on both sides first.
func relativeRoot(top, root string) (string, error) {
	if t, err := filepath.EvalSymlinks(top); err == nil {
		top = t
	}
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	rel, err := filepath.Rel(top, root)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside %s", root, top)
	}
	return rel, nil
}

// Result describes what Apply committed.
type Result struct {
	StableCommit     string `json:"stable_commit,omitempty"`
	PrereleaseCommit string `json:"prerelease_commit,omitempty"`
	PrereleaseBranch string `json:"prerelease_branch,omitempty"`
	Changed          int    `json:"packages_updated"`
}

// Apply writes the plan's versions, regenerates lockfiles and commits, one
// channel at a time. Only the highest change per package is written.
//
// Stable-channel plans commit to the current branch and put the prerelease
// propagation on a new branch created from the prerelease branch.
// Prerelease-channel plans commit to the current branch only.
func (r *Runner) Apply(ctx context.Context, plan *Plan, opts Options) (res *Result, err error) {
	opts = opts.WithDefaults()
	res = &Result{Changed: len(plan.Tree.Packages())}
	if plan.Tree.Empty() {
		opts.Logger("nothing to apply")
		return res, nil
	}

	hooks := observability.Release()
	start := time.Now()
	hooks.OnApplyStart(ctx, plan.Channel.String(), res.Changed)
	defer func() {
		hooks.OnApplyComplete(ctx, plan.Channel.String(), time.Since(start), err)
	}()

	if plan.Channel == bump.Prerelease {
		res.PrereleaseCommit, err = r.commit(ctx, r.Git, plan.Prerelease, plan.Tree.Changes(bump.Prerelease), "Bump "+describe(plan.Roots), opts)
		return res, err
	}

	res.StableCommit, err = r.commit(ctx, r.Git, plan.Stable, plan.Tree.Changes(bump.Stable), "Bump "+describe(plan.Roots), opts)
	if err != nil {
		return res, err
	}

	pre := plan.Tree.Changes(bump.Prerelease)
	if len(pre) == 0 {
		return res, nil
	}
	res.PrereleaseBranch = PropagationBranch(plan.Roots)
	wt := plan.worktreeRepo
	if err := wt.RestoreFile(ctx, filepath.Join(plan.rel, Lockfile)); err != nil {
		opts.Logger("precautionary lockfile reset failed", "err", err)
	}
	if err := wt.CreateBranch(ctx, res.PrereleaseBranch, "HEAD"); err != nil {
		return res, err
	}
	res.PrereleaseCommit, err = r.commit(ctx, wt, plan.Prerelease, pre,
		fmt.Sprintf("Propagate stable bump of %s to prerelease", describe(plan.Roots)), opts)
	return res, err
}

func (r *Runner) commit(ctx context.Context, repo *git.Repo, ws *workspace.Workspace, changes []*bump.Instruction, message string, opts Options) (string, error) {
	if len(changes) == 0 {
		return "", nil
	}
	for _, c := range changes {
		opts.Logger("set version", "package", c.Name(), "from", c.Current(), "to", c.Next, "branch", ws.Branch)
		if err := c.Package.SetVersion(c.Next); err != nil {
			return "", err
		}
	}
	if !opts.NoLockfile {
		if err := r.Cargo.UpdateLockfile(ctx, ws.Root); err != nil {
			return "", err
		}
	}
	hash, err := repo.CommitAll(ctx, message)
	if err != nil {
		return "", err
	}
	opts.Logger("committed", "branch", ws.Branch, "commit", hash, "message", message)
	return hash, nil
}

// describe renders roots as "a to 1.0.0, b to 2.0.0".
func describe(roots []*bump.Instruction) string {
	parts := make([]string, len(roots))
	for i, r := range roots {
		parts[i] = fmt.Sprintf("%s to %s", r.Name(), r.Next)
	}
	return strings.Join(parts, ", ")
}

// PropagationBranch names the branch carrying the prerelease side of a
// stable bump.
func PropagationBranch(roots []*bump.Instruction) string {
	parts := make([]string, len(roots))
	for i, r := range roots {
		parts[i] = fmt.Sprintf("%s-stable-bump-to-%s", r.Name(), r.Next)
	}
	return "propagate-" + strings.Join(parts, "-and-")
}
