package release

import (
	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// VersionChange is one manifest version rewrite.
type VersionChange struct {
	Package string          `json:"package"`
	From    *semver.Version `json:"from"`
	To      *semver.Version `json:"to"`
}

// MakeAtLeastStable strips prerelease labels from every package and lifts
// 0.0.x versions to 0.1.0, so compatible bumps are possible afterwards.
// Packages that already qualify are left alone.
func MakeAtLeastStable(ws *workspace.Workspace, dryRun bool) ([]VersionChange, error) {
	return rewrite(ws, dryRun, version.AtLeastStable)
}

// MakePrerelease appends the first prerelease label (-alpha.1) to every
// package. Nothing is written if any package already carries a prerelease
// label, since that usually means the wrong branch is checked out.
func MakePrerelease(ws *workspace.Workspace, dryRun bool) ([]VersionChange, error) {
	for _, p := range ws.Packages() {
		if p.Version().Prerelease() != "" {
			return nil, errors.New(errors.ErrCodeInvalidVersion,
				"package %s already has a prerelease version %s; check your branch", p.Name(), p.Version())
		}
	}
	return rewrite(ws, dryRun, version.FirstPrerelease)
}

func rewrite(ws *workspace.Workspace, dryRun bool, next func(*semver.Version) *semver.Version) ([]VersionChange, error) {
	var changes []VersionChange
	for _, p := range ws.Packages() {
		cur := p.Version()
		to := next(cur)
		if to.String() == cur.String() {
			continue
		}
		if !dryRun {
			if err := p.SetVersion(to); err != nil {
				return changes, err
			}
		}
		changes = append(changes, VersionChange{Package: p.Name(), From: cur, To: to})
	}
	return changes, nil
}
