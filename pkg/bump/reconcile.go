package bump

import (
	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// ReconcilePrerelease computes the prerelease-side instruction for a package
// affected by a change on either channel.
//
// Two candidates are considered:
//   - stableChange, when the package changes on stable: the prerelease must
//     stay strictly above the new stable version (one major above for a
//     breaking change, one patch above otherwise).
//   - prereleaseParent, when a dependency changes on prerelease: a major
//     parent forces a major bump over current stable, anything else a patch.
//
// The greater candidate wins, and it is only returned if it moves the
// prerelease version forward. Nil is returned if either package is absent or
// nothing needs to change.
func ReconcilePrerelease(pre, stable *workspace.Package, stableChange, prereleaseParent *Instruction) *Instruction {
	if pre == nil || stable == nil {
		return nil
	}

	var next *semver.Version
	if stableChange != nil {
		m := version.Patch
		if stableChange.Magnitude() >= version.Minor {
			m = version.Major
		}
		next = version.Max(next, version.WithPrerelease(version.Bump(stableChange.Next, m, version.Derived)))
	}
	if prereleaseParent != nil {
		m := version.Patch
		if prereleaseParent.Magnitude() == version.Major {
			m = version.Major
		}
		next = version.Max(next, version.WithPrerelease(version.Bump(stable.Version(), m, version.Derived)))
	}

	if next == nil || !next.GreaterThan(pre.Version()) {
		return nil
	}
	return &Instruction{Package: pre, Channel: Prerelease, Next: next}
}
