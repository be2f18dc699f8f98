package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wsbump/pkg/bump"
	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/integrations"
	"github.com/matzehuels/wsbump/pkg/integrations/crates"
	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// writeWorkspace writes a workspace of crates given as name -> version,
// where cli depends on core when both are present.
func writeWorkspace(t *testing.T, versions map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	var members []string
	for name, v := range versions {
		members = append(members, fmt.Sprintf("%q", name))
		manifest := fmt.Sprintf("[package]\nname = %q\nversion = %q\n\n[dependencies]\n", name, v)
		if _, ok := versions["core"]; ok && name == "cli" {
			manifest += "core = { path = \"../core\" }\n"
		}
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	root := fmt.Sprintf("[workspace]\nmembers = [%s]\n", strings.Join(members, ", "))
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(root), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(redisEnv, "")
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, log.InfoLevel).RootCommand()
	want := []string{"bump", "sync", "make-at-least-stable", "make-prerelease", "graph", "cache", "completion"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
	for _, ch := range []string{"stable", "prerelease"} {
		if _, _, err := root.Find([]string{"bump", ch}); err != nil {
			t.Errorf("missing bump %s", ch)
		}
	}
}

func TestGraphCommand(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"core": "1.0.0", "cli": "1.2.0"})

	out, err := execute(t, "-w", dir, "graph")
	if err != nil {
		t.Fatalf("graph error: %v", err)
	}
	if out != "0: core\n1: cli\n" {
		t.Errorf("graph text = %q", out)
	}

	out, err = execute(t, "-w", dir, "graph", "--format", "dot", "--detailed")
	if err != nil {
		t.Fatalf("graph dot error: %v", err)
	}
	for _, want := range []string{`"cli" -> "core"`, "layer: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "-w", dir, "graph", "--format", "png"); errors.GetCode(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("png format error = %v", err)
	}
}

func TestGraphCommandWritesFile(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"core": "1.0.0"})
	path := filepath.Join(t.TempDir(), "graph.txt")

	out, err := execute(t, "-w", dir, "graph", "-o", path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("stdout should be empty when writing a file, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0: core\n" {
		t.Errorf("file = %q", data)
	}
}

func TestMakeAtLeastStableCommand(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"core": "0.0.4", "cli": "1.0.0-alpha"})
	manifest := filepath.Join(dir, "core", "Cargo.toml")

	if _, err := execute(t, "-w", dir, "make-at-least-stable", "--dry-run"); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(manifest); !strings.Contains(string(data), `version = "0.0.4"`) {
		t.Errorf("dry run changed manifest:\n%s", data)
	}

	if _, err := execute(t, "-w", dir, "make-at-least-stable"); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(manifest); !strings.Contains(string(data), `version = "0.1.0"`) {
		t.Errorf("manifest not rewritten:\n%s", data)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "cli", "Cargo.toml"))
	if !strings.Contains(string(data), `version = "1.0.0"`) {
		t.Errorf("prerelease label not stripped:\n%s", data)
	}
}

func TestMakePrereleaseCommandRejectsPrerelease(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"core": "1.0.0-alpha.3"})
	_, err := execute(t, "-w", dir, "make-prerelease")
	if errors.GetCode(err) != errors.ErrCodeInvalidVersion {
		t.Errorf("make-prerelease error = %v", err)
	}
}

func TestBumpRequiresInstruction(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"core": "1.0.0"})
	if _, err := execute(t, "-w", dir, "bump", "stable", "-p", "next"); err == nil {
		t.Error("bump without -b should fail")
	}
	if _, err := execute(t, "-w", dir, "bump", "stable", "-b", "core minor", "-p", "next", "-f", "pdf"); errors.GetCode(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("invalid format error = %v", err)
	}
}

func TestReleaseOptions(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	c.workspace = "/ws"
	c.remote = "upstream"
	c.config = &Config{StableBranch: "stable", PrereleaseBranch: "main", Lockfile: false}
	ctx := context.Background()

	opts := c.releaseOptions(ctx, bump.Stable, &bumpOpts{instructions: []string{"core minor"}})
	if opts.OtherBranch != "main" || !opts.NoLockfile || opts.Remote != "upstream" || opts.Root != "/ws" {
		t.Errorf("stable options = %+v", opts)
	}

	opts = c.releaseOptions(ctx, bump.Prerelease, &bumpOpts{otherBranch: "release-1"})
	if opts.OtherBranch != "release-1" {
		t.Errorf("flag should override config, got %s", opts.OtherBranch)
	}

	c.config.Lockfile = true
	opts = c.releaseOptions(ctx, bump.Prerelease, &bumpOpts{})
	if opts.OtherBranch != "stable" || opts.NoLockfile {
		t.Errorf("prerelease options = %+v", opts)
	}
}

func TestRenderPlan(t *testing.T) {
	core := workspace.NewPackage("core", version.MustParse("1.0.0"))
	cli := workspace.NewPackage("cli", version.MustParse("1.2.0"), "core")
	stable, err := workspace.New("main", core, cli)
	if err != nil {
		t.Fatal(err)
	}
	prerelease, err := workspace.New("next",
		workspace.NewPackage("core", version.MustParse("2.0.0-alpha")),
		workspace.NewPackage("cli", version.MustParse("2.0.0-alpha"), "core"),
	)
	if err != nil {
		t.Fatal(err)
	}
	root, err := bump.ResolveInstruction(stable, prerelease, "core minor", bump.Stable)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := bump.NewTree(stable, prerelease, []*bump.Instruction{root}, bump.Stable)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	data, err := renderPlan(ctx, tree, formatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var summary bump.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if summary.Channel != "stable" || len(summary.Stable) != 2 {
		t.Errorf("summary = %+v", summary)
	}

	data, err = renderPlan(ctx, tree, formatText)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Packages updated: 2") {
		t.Errorf("text output:\n%s", data)
	}

	data, err = renderPlan(ctx, tree, formatDOT)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("dot output:\n%s", data)
	}
}

type stubRegistry map[string]string

func (r stubRegistry) FetchCrate(ctx context.Context, crate string, refresh bool) (*crates.CrateInfo, error) {
	v, ok := r[crate]
	if !ok {
		return nil, integrations.ErrNotFound
	}
	return &crates.CrateInfo{Name: crate, MaxVersion: v}, nil
}

func TestRunSync(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"core": "1.0.0", "cli": "1.2.0"})
	c := New(io.Discard, log.InfoLevel)
	c.workspace = dir
	ctx := withLogger(context.Background(), c.Logger)

	if err := c.runSync(ctx, &syncOpts{}, stubRegistry{"core": "1.0.2", "cli": "1.2.0"}); err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "core", "Cargo.toml"))
	if !strings.Contains(string(data), `version = "1.0.2"`) {
		t.Errorf("core not synced:\n%s", data)
	}

	err := c.runSync(ctx, &syncOpts{}, stubRegistry{"core": "1.0.2"})
	if errors.GetCode(err) != errors.ErrCodeNetwork {
		t.Errorf("missing crate should fail the command, got %v", err)
	}
}

func TestCachePathCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	out, err := execute(t, "-w", t.TempDir(), "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != filepath.Join("/tmp/xdg", appName) {
		t.Errorf("cache path = %q", out)
	}
}

func TestCacheClearCommand(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	entry := filepath.Join(xdg, appName, "ab", "cdef.json")
	if err := os.MkdirAll(filepath.Dir(entry), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(entry, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "-w", t.TempDir(), "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(entry); !os.IsNotExist(err) {
		t.Error("cache clear should remove entries")
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := execute(t, "-w", t.TempDir(), "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wsbump") {
		t.Error("bash completion should mention the program name")
	}
}
