package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/wsbump/pkg/bump"
	"github.com/matzehuels/wsbump/pkg/cargo"
	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/git"
)

type crate struct {
	name    string
	version string
	deps    []string
}

// writeWorkspace lays out a workspace with one directory per crate.
func writeWorkspace(t *testing.T, root string, crates ...crate) {
	t.Helper()
	var members []string
	for _, c := range crates {
		members = append(members, fmt.Sprintf("%q", c.name))
		var b strings.Builder
		fmt.Fprintf(&b, "[package]\nname = %q\nversion = %q\nedition = \"2021\"\n\n[dependencies]\n", c.name, c.version)
		for _, d := range c.deps {
			fmt.Fprintf(&b, "%s = { path = \"../%s\" }\n", d, d)
		}
		writeFile(t, filepath.Join(root, c.name, "Cargo.toml"), b.String())
	}
	writeFile(t, filepath.Join(root, "Cargo.toml"), fmt.Sprintf("[workspace]\nmembers = [%s]\n", strings.Join(members, ", ")))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readVersion(t *testing.T, manifest string) string {
	t.Helper()
	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(line, "version = "); ok {
			return strings.Trim(v, `"`)
		}
	}
	t.Fatalf("no version in %s", manifest)
	return ""
}

var (
	stableCrates = []crate{
		{name: "core", version: "1.0.0"},
		{name: "cli", version: "1.2.0", deps: []string{"core"}},
	}
	prereleaseCrates = []crate{
		{name: "core", version: "1.1.0-alpha"},
		{name: "cli", version: "1.2.1-alpha", deps: []string{"core"}},
	}
)

type gitCall struct {
	dir  string
	args string
}

// fakeRepo answers git commands for a checkout at dir on branch. Adding a
// worktree materialises other into the worktree path.
type fakeRepo struct {
	dir    string
	branch string
	dirty  bool
	other  []crate
	t      *testing.T
	calls  []gitCall
}

func (f *fakeRepo) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, gitCall{dir, strings.Join(args, " ")})
	switch {
	case args[0] == "status":
		if f.dirty {
			return []byte(" M core/Cargo.toml"), nil
		}
		return nil, nil
	case args[0] == "symbolic-ref":
		return []byte(f.branch), nil
	case slices.Equal(args, []string{"rev-parse", "--show-toplevel"}):
		return []byte(f.dir), nil
	case slices.Equal(args, []string{"rev-parse", "HEAD"}):
		return []byte("c0ffee"), nil
	case args[0] == "ls-files":
		return nil, fmt.Errorf("exit status 1")
	case len(args) > 3 && args[0] == "worktree" && args[1] == "add":
		writeWorkspace(f.t, args[3], f.other...)
		return nil, nil
	case len(args) > 3 && args[0] == "worktree" && args[1] == "remove":
		return nil, os.RemoveAll(args[3])
	}
	return nil, nil
}

func (f *fakeRepo) commands(dir string) []string {
	var out []string
	for _, c := range f.calls {
		if c.dir == dir {
			out = append(out, c.args)
		}
	}
	return out
}

func (f *fakeRepo) worktree() string {
	for _, c := range f.calls {
		if rest, ok := strings.CutPrefix(c.args, "worktree add --detach "); ok {
			return strings.Fields(rest)[0]
		}
	}
	return ""
}

type setup struct {
	repo     *fakeRepo
	runner   *Runner
	lockDirs []string
	opts     Options
}

func newSetup(t *testing.T, ch bump.Channel, current, other []crate) *setup {
	t.Helper()
	dir := t.TempDir()
	writeWorkspace(t, dir, current...)

	branch, otherBranch := "main", "next"
	if ch == bump.Prerelease {
		branch, otherBranch = otherBranch, branch
	}
	s := &setup{repo: &fakeRepo{dir: dir, branch: branch, other: other, t: t}}
	s.runner = &Runner{
		Git: git.NewWithRunner(dir, s.repo.run),
		Cargo: cargo.NewWithRunner(func(ctx context.Context, dir string, args ...string) ([]byte, error) {
			s.lockDirs = append(s.lockDirs, dir)
			return nil, nil
		}),
	}
	s.opts = Options{
		Root:        dir,
		Channel:     ch,
		OtherBranch: otherBranch,
		WorktreeDir: t.TempDir(),
	}
	return s
}

func TestPlanAndApplyStable(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, bump.Stable, stableCrates, prereleaseCrates)
	s.opts.Instructions = []string{"core patch", "core patch"}

	plan, err := s.runner.Plan(ctx, s.opts)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	defer plan.Close(ctx)

	if plan.ID == "" {
		t.Error("plan should have an ID")
	}
	if len(plan.Roots) != 1 {
		t.Errorf("duplicate instructions should collapse, got %d roots", len(plan.Roots))
	}
	if plan.Stable.Root != s.repo.dir || plan.Other() != plan.Prerelease {
		t.Error("stable plan should use the current checkout for stable")
	}

	res, err := s.runner.Apply(ctx, plan, s.opts)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	wt := s.repo.worktree()
	if wt == "" {
		t.Fatal("no worktree was added")
	}
	checks := map[string]string{
		filepath.Join(s.repo.dir, "core", "Cargo.toml"): "1.0.1",
		filepath.Join(s.repo.dir, "cli", "Cargo.toml"):  "1.2.1",
		filepath.Join(wt, "core", "Cargo.toml"):         "1.1.0-alpha",
		filepath.Join(wt, "cli", "Cargo.toml"):          "1.2.2-alpha",
	}
	for path, want := range checks {
		if got := readVersion(t, path); got != want {
			t.Errorf("%s version = %s, want %s", path, got, want)
		}
	}

	if res.PrereleaseBranch != "propagate-core-stable-bump-to-1.0.1" {
		t.Errorf("PrereleaseBranch = %s", res.PrereleaseBranch)
	}
	if res.StableCommit != "c0ffee" || res.PrereleaseCommit != "c0ffee" {
		t.Errorf("commits = %+v", res)
	}
	if !slices.Contains(s.repo.commands(s.repo.dir), "commit --quiet -m Bump core to 1.0.1") {
		t.Errorf("stable commit missing: %v", s.repo.commands(s.repo.dir))
	}
	wtCmds := s.repo.commands(wt)
	for _, want := range []string{
		"checkout -B propagate-core-stable-bump-to-1.0.1 HEAD",
		"commit --quiet -m Propagate stable bump of core to 1.0.1 to prerelease",
	} {
		if !slices.Contains(wtCmds, want) {
			t.Errorf("worktree commands missing %q: %v", want, wtCmds)
		}
	}
	if !slices.Equal(s.lockDirs, []string{s.repo.dir, wt}) {
		t.Errorf("lockfile updates in %v", s.lockDirs)
	}

	if err := plan.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(wt); !os.IsNotExist(err) {
		t.Error("Close() should remove the worktree")
	}
}

func TestPlanAndApplyPrerelease(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, bump.Prerelease, prereleaseCrates, stableCrates)
	s.opts.Instructions = []string{"core major"}
	s.opts.NoLockfile = true

	plan, err := s.runner.Plan(ctx, s.opts)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	defer plan.Close(ctx)

	res, err := s.runner.Apply(ctx, plan, s.opts)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	for _, name := range []string{"core", "cli"} {
		if got := readVersion(t, filepath.Join(s.repo.dir, name, "Cargo.toml")); got != "2.0.0-alpha" {
			t.Errorf("%s version = %s, want 2.0.0-alpha", name, got)
		}
	}
	if res.StableCommit != "" || res.PrereleaseBranch != "" {
		t.Errorf("prerelease bump touched stable: %+v", res)
	}
	if !slices.Contains(s.repo.commands(s.repo.dir), "commit --quiet -m Bump core to 2.0.0-alpha") {
		t.Errorf("commit missing: %v", s.repo.commands(s.repo.dir))
	}
	if len(s.lockDirs) != 0 {
		t.Errorf("NoLockfile still ran cargo in %v", s.lockDirs)
	}
}

func TestPlanSkipsNoOps(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, bump.Prerelease, prereleaseCrates, stableCrates)
	s.opts.Instructions = []string{"core patch"}

	plan, err := s.runner.Plan(ctx, s.opts)
	if err != nil {
		t.Fatal(err)
	}
	defer plan.Close(ctx)

	if !slices.Equal(plan.Skipped, []string{"core patch"}) {
		t.Errorf("Skipped = %v", plan.Skipped)
	}
	if !plan.Tree.Empty() {
		t.Error("tree should be empty")
	}
	res, err := s.runner.Apply(ctx, plan, s.opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 0 || res.PrereleaseCommit != "" {
		t.Errorf("empty plan applied changes: %+v", res)
	}
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*setup)
		want   errors.Code
	}{
		{
			name:   "no instructions",
			modify: func(s *setup) { s.opts.Instructions = nil },
			want:   errors.ErrCodeInvalidInput,
		},
		{
			name:   "no other branch",
			modify: func(s *setup) { s.opts.OtherBranch = "" },
			want:   errors.ErrCodeInvalidInput,
		},
		{
			name:   "dirty",
			modify: func(s *setup) { s.repo.dirty = true },
			want:   errors.ErrCodeDirtyWorktree,
		},
		{
			name:   "other branch checked out",
			modify: func(s *setup) { s.repo.branch = "next" },
			want:   errors.ErrCodeInvalidInput,
		},
		{
			name:   "unknown package",
			modify: func(s *setup) { s.opts.Instructions = []string{"nope minor"} },
			want:   errors.ErrCodePackageNotFound,
		},
		{
			name:   "bad instruction",
			modify: func(s *setup) { s.opts.Instructions = []string{"core huge"} },
			want:   errors.ErrCodeInvalidInstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSetup(t, bump.Stable, stableCrates, prereleaseCrates)
			s.opts.Instructions = []string{"core minor"}
			tt.modify(s)

			plan, err := s.runner.Plan(context.Background(), s.opts)
			if plan != nil {
				t.Error("Plan() should return nil plan on error")
			}
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("Plan() code = %q, want %q (err %v)", got, tt.want, err)
			}
			if wt := s.repo.worktree(); wt != "" {
				if _, err := os.Stat(wt); !os.IsNotExist(err) {
					t.Error("failed plan should remove its worktree")
				}
			}
		})
	}
}

func TestPropagationBranch(t *testing.T) {
	s := newSetup(t, bump.Stable, stableCrates, prereleaseCrates)
	s.opts.Instructions = []string{"core minor", "cli patch"}
	plan, err := s.runner.Plan(context.Background(), s.opts)
	if err != nil {
		t.Fatal(err)
	}
	defer plan.Close(context.Background())

	want := "propagate-core-stable-bump-to-1.1.0-and-cli-stable-bump-to-1.2.1"
	if got := PropagationBranch(plan.Roots); got != want {
		t.Errorf("PropagationBranch() = %s, want %s", got, want)
	}
}

func TestRelativeRoot(t *testing.T) {
	tests := []struct {
		top, root, want string
		wantErr         bool
	}{
		{"/repo", "/repo", ".", false},
		{"/repo", "/repo/rust", "rust", false},
		{"/repo", "/other", "", true},
		{"/repo", "/repo/../repo2", "", true},
	}
	for _, tt := range tests {
		got, err := relativeRoot(tt.top, tt.root)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("relativeRoot(%s, %s) = %q, %v", tt.top, tt.root, got, err)
		}
	}
}
