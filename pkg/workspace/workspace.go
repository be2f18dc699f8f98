package workspace

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/wsbump/pkg/dag"
	"github.com/matzehuels/wsbump/pkg/errors"
)

// ManifestName is the file name of a Cargo manifest.
const ManifestName = "Cargo.toml"

// Options configures workspace loading.
type Options struct {
	Branch string               // Git branch the checkout belongs to (informational)
	Logger func(string, ...any) // Progress/warning callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Workspace is the set of packages of one checkout of a Cargo workspace,
// together with their dependency graph.
type Workspace struct {
	Root   string // Directory holding the root Cargo.toml ("" for in-memory workspaces)
	Branch string // Branch the checkout belongs to

	packages map[string]*Package
	graph    *dag.DAG
}

// New builds an in-memory workspace from packages. Dependencies that do not
// name another package in the set are ignored, matching how external crates
// are treated when loading from disk.
func New(branch string, pkgs ...*Package) (*Workspace, error) {
	w := &Workspace{Branch: branch, packages: make(map[string]*Package, len(pkgs))}
	for _, p := range pkgs {
		if _, dup := w.packages[p.name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "duplicate package %q", p.name)
		}
		w.packages[p.name] = p
	}
	if err := w.link(); err != nil {
		return nil, err
	}
	return w, nil
}

// Load reads the workspace rooted at root. The root manifest must contain a
// [workspace] table; its members globs (minus exclude) select the member
// manifests. A root manifest that is itself a package is included too.
func Load(root string, opts Options) (*Workspace, error) {
	opts = opts.WithDefaults()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", root)
	}
	rootManifest := filepath.Join(abs, ManifestName)
	rootCargo, err := readManifest(rootManifest)
	if err != nil {
		return nil, err
	}
	if rootCargo.Workspace == nil {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s has no [workspace] table", rootManifest)
	}

	dirs, err := memberDirs(abs, rootCargo.Workspace.Members, rootCargo.Workspace.Exclude)
	if err != nil {
		return nil, err
	}
	if rootCargo.Package != nil && !slices.Contains(dirs, abs) {
		dirs = append([]string{abs}, dirs...)
	}

	inherited := rootCargo.Workspace.Dependencies
	w := &Workspace{Root: abs, Branch: opts.Branch, packages: make(map[string]*Package, len(dirs))}
	for _, dir := range dirs {
		manifest := filepath.Join(dir, ManifestName)
		cargo := rootCargo
		if dir != abs {
			if cargo, err = readManifest(manifest); err != nil {
				return nil, err
			}
		}
		if cargo.Package == nil {
			opts.Logger("skipping %s: no [package] table", manifest)
			continue
		}
		if err := errors.ValidateCratesPackageName(cargo.Package.Name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", manifest)
		}
		v, err := cargo.packageVersion(manifest)
		if err != nil {
			return nil, err
		}
		if _, dup := w.packages[cargo.Package.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "package %q declared twice (second in %s)", cargo.Package.Name, manifest)
		}
		w.packages[cargo.Package.Name] = &Package{
			name:         cargo.Package.Name,
			version:      v,
			manifest:     manifest,
			publish:      cargo.publishable(),
			dependencies: cargo.dependencyNames(inherited),
		}
	}

	if err := w.link(); err != nil {
		return nil, err
	}
	opts.Logger("loaded %d packages from %s", len(w.packages), abs)
	return w, nil
}

// memberDirs expands member globs into sorted, de-duplicated directories that
// contain a Cargo.toml and are not excluded.
func memberDirs(root string, members, exclude []string) ([]string, error) {
	excluded := make(map[string]bool)
	for _, pattern := range exclude {
		if err := errors.ValidatePath(pattern); err != nil {
			return nil, err
		}
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "bad exclude pattern %q", pattern)
		}
		for _, m := range matches {
			excluded[m] = true
		}
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, pattern := range members {
		if err := errors.ValidatePath(strings.TrimPrefix(pattern, "./")); err != nil {
			return nil, err
		}
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "bad members pattern %q", pattern)
		}
		if len(matches) == 0 && !strings.ContainsAny(pattern, "*?[") {
			return nil, errors.New(errors.ErrCodeFileNotFound, "workspace member %q does not exist", pattern)
		}
		for _, dir := range matches {
			if excluded[dir] || seen[dir] {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, ManifestName)); err != nil {
				continue
			}
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs, nil
}

// link restricts dependencies to workspace members, fills in dependents and
// builds the graph. Cycles are rejected.
func (w *Workspace) link() error {
	g := dag.New(dag.Metadata{"root": w.Root, "branch": w.Branch})
	names := slices.Sorted(maps.Keys(w.packages))
	for _, name := range names {
		p := w.packages[name]
		p.dependents = nil
		_ = g.AddNode(dag.Node{ID: name, Meta: dag.Metadata{
			dag.MetaVersion: p.version.String(),
			dag.MetaPublish: p.publish,
			dag.MetaPath:    p.manifest,
		}})
	}
	for _, name := range names {
		p := w.packages[name]
		p.dependencies = slices.DeleteFunc(p.dependencies, func(dep string) bool {
			_, ok := w.packages[dep]
			return !ok
		})
		for _, dep := range p.dependencies {
			_ = g.AddEdge(dag.Edge{From: name, To: dep})
			w.packages[dep].dependents = append(w.packages[dep].dependents, name)
		}
	}
	if cycle := dag.FindCycle(g); cycle != nil {
		return errors.Wrap(errors.ErrCodeDependencyCycle, dag.ErrGraphHasCycle,
			"workspace dependencies form a cycle: %s", strings.Join(cycle, " -> "))
	}
	w.graph = g
	return nil
}

// Package returns the named package.
func (w *Workspace) Package(name string) (*Package, bool) {
	p, ok := w.packages[name]
	return p, ok
}

// Packages returns all packages sorted by name.
func (w *Workspace) Packages() []*Package {
	out := make([]*Package, 0, len(w.packages))
	for _, name := range slices.Sorted(maps.Keys(w.packages)) {
		out = append(out, w.packages[name])
	}
	return out
}

// Len returns the number of packages.
func (w *Workspace) Len() int { return len(w.packages) }

// Graph returns the dependency graph. Node metadata reflects versions at load
// time.
func (w *Workspace) Graph() *dag.DAG { return w.graph }

// FindDependents returns every package that transitively depends on name.
func (w *Workspace) FindDependents(name string) []string { return w.graph.Ancestors(name) }

// FindDependencies returns every workspace package name transitively depends on.
func (w *Workspace) FindDependencies(name string) []string { return w.graph.Descendants(name) }
