package workspace

import (
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/wsbump/pkg/errors"
)

// cargoFile is the subset of Cargo.toml the loader cares about.
type cargoFile struct {
	Package *struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"`
		Publish any    `toml:"publish"`
	} `toml:"package"`
	Workspace *struct {
		Members      []string       `toml:"members"`
		Exclude      []string       `toml:"exclude"`
		Dependencies map[string]any `toml:"dependencies"`
	} `toml:"workspace"`
	Dependencies      map[string]any `toml:"dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
	Target            map[string]struct {
		Dependencies      map[string]any `toml:"dependencies"`
		BuildDependencies map[string]any `toml:"build-dependencies"`
	} `toml:"target"`
}

func readManifest(path string) (*cargoFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	var cargo cargoFile
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
	}
	return &cargo, nil
}

// packageVersion returns the literal [package] version. Versions inherited
// with version.workspace = true are not supported because a bump would have
// to be written to the workspace root instead.
func (c *cargoFile) packageVersion(path string) (*semver.Version, error) {
	raw, ok := c.Package.Version.(string)
	if !ok {
		if c.Package.Version == nil {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "%s: package %q has no version", path, c.Package.Name)
		}
		return nil, errors.New(errors.ErrCodeUnsupported, "%s: package %q inherits its version from the workspace", path, c.Package.Name)
	}
	v, err := semver.StrictNewVersion(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "%s: package %q has invalid version %q", path, c.Package.Name, raw)
	}
	return v, nil
}

// publishable reports false only for publish = false. A list of registries
// still means the package is published somewhere.
func (c *cargoFile) publishable() bool {
	if b, ok := c.Package.Publish.(bool); ok {
		return b
	}
	return true
}

// dependencyNames returns the real package names of every normal and build
// dependency, including target-specific ones. Renamed dependencies
// (foo = { package = "bar" }) resolve to the real name, and workspace-inherited
// ones (foo = { workspace = true }) consult the root [workspace.dependencies].
func (c *cargoFile) dependencyNames(inherited map[string]any) []string {
	var names []string
	add := func(table map[string]any) {
		for key, spec := range table {
			names = append(names, realName(key, spec, inherited))
		}
	}
	add(c.Dependencies)
	add(c.BuildDependencies)
	for _, target := range c.Target {
		add(target.Dependencies)
		add(target.BuildDependencies)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func realName(key string, spec any, inherited map[string]any) string {
	table, ok := spec.(map[string]any)
	if !ok {
		return key
	}
	if pkg, ok := table["package"].(string); ok && pkg != "" {
		return pkg
	}
	if ws, _ := table["workspace"].(bool); ws {
		if root, ok := inherited[key]; ok {
			return realName(key, root, nil)
		}
	}
	return key
}
