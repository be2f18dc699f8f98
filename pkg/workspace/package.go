package workspace

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/wsbump/pkg/errors"
)

// Package is one member of a Cargo workspace.
//
// Packages loaded from disk remember their manifest path and write version
// changes back to it. Packages built with [NewPackage] live only in memory.
type Package struct {
	name         string
	version      *semver.Version
	manifest     string
	publish      bool
	dependencies []string
	dependents   []string
}

// NewPackage creates an in-memory package that is publishable and depends on
// the named workspace packages.
func NewPackage(name string, v *semver.Version, dependencies ...string) *Package {
	deps := slices.Clone(dependencies)
	slices.Sort(deps)
	return &Package{
		name:         name,
		version:      v,
		publish:      true,
		dependencies: slices.Compact(deps),
	}
}

// Name returns the package name from the [package] table.
func (p *Package) Name() string { return p.name }

// Version returns the current package version.
func (p *Package) Version() *semver.Version { return p.version }

// Publish reports whether the package may be published to a registry.
// It is false only when the manifest says publish = false.
func (p *Package) Publish() bool { return p.publish }

// SetPublish overrides the publish flag of an in-memory package.
func (p *Package) SetPublish(publish bool) { p.publish = publish }

// Path returns the manifest path, or "" for in-memory packages.
func (p *Package) Path() string { return p.manifest }

// Dependencies returns the sorted names of the workspace packages this
// package depends on. Development dependencies are not included.
func (p *Package) Dependencies() []string { return slices.Clone(p.dependencies) }

// Dependents returns the sorted names of the workspace packages that depend
// directly on this package.
func (p *Package) Dependents() []string { return slices.Clone(p.dependents) }

// SetVersion sets the package version and, for packages loaded from disk,
// rewrites the version key of the manifest's [package] table. The rest of
// the manifest is left byte-for-byte untouched.
func (p *Package) SetVersion(v *semver.Version) error {
	if p.manifest != "" {
		data, err := os.ReadFile(p.manifest)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", p.manifest)
		}
		out, err := rewriteVersion(data, v.String())
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "update %s", p.manifest)
		}
		info, err := os.Stat(p.manifest)
		if err != nil {
			return err
		}
		if err := os.WriteFile(p.manifest, out, info.Mode().Perm()); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", p.manifest)
		}
	}
	p.version = v
	return nil
}

func (p *Package) String() string {
	return p.name + "@" + p.version.String()
}

var (
	tableHeader = regexp.MustCompile(`^\s*\[\s*([^\[\]]+?)\s*\]\s*(#.*)?$`)
	versionKey  = regexp.MustCompile(`^(\s*version\s*=\s*)(["'])([^"']*)(["'])(.*)$`)
)

// rewriteVersion replaces the string value of version inside [package].
func rewriteVersion(data []byte, next string) ([]byte, error) {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	table := ""
	replaced := false
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "[[") {
			table = ""
		} else if m := tableHeader.FindStringSubmatch(line); m != nil {
			table = m[1]
		} else if table == "package" && !replaced {
			if m := versionKey.FindStringSubmatch(line); m != nil {
				line = m[1] + m[2] + next + m[4] + m[5]
				replaced = true
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !replaced {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "no version key in [package] table")
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		out.Truncate(out.Len() - 1)
	}
	return out.Bytes(), nil
}
