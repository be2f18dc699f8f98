package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// PrereleaseLabel is attached to every version pushed onto the prerelease line.
const PrereleaseLabel = "alpha"

// Magnitude is the severity of a version change. Values are ordered so that
// a larger Magnitude is always the more severe bump: Patch < Minor < Major.
type Magnitude int

const (
	Patch Magnitude = iota
	Minor
	Major
)

// String returns the lowercase magnitude name used in bump instructions.
func (m Magnitude) String() string {
	switch m {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Patch:
		return "patch"
	default:
		return fmt.Sprintf("magnitude(%d)", int(m))
	}
}

// ParseMagnitude parses "major", "minor" or "patch" case-insensitively.
func ParseMagnitude(s string) (Magnitude, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "patch":
		return Patch, nil
	default:
		return 0, fmt.Errorf("unknown bump magnitude %q (want major, minor or patch)", s)
	}
}

// Initiator records who asked for a bump. A user-initiated major bump always
// increments the major field, while a derived one keeps 0.x packages on 0.x.
type Initiator int

const (
	// Derived bumps are propagated automatically to dependents.
	Derived Initiator = iota
	// UserInitiated bumps were explicitly requested.
	UserInitiated
)

// MagnitudeOf derives the magnitude of moving from current to next.
//
// A minor-field increment on a 0.x package counts as Major, matching the
// semver convention that the minor field is the breaking-change signal
// before 1.0.0.
func MagnitudeOf(current, next *semver.Version) Magnitude {
	switch {
	case next.Major() > current.Major():
		return Major
	case current.Major() == 0 && next.Major() == 0 && next.Minor() > current.Minor():
		return Major
	case next.Minor() > current.Minor():
		return Minor
	default:
		return Patch
	}
}

// Bump returns v bumped by m. The result never carries a prerelease label or
// build metadata; use [WithPrerelease] to move it onto the prerelease line.
func Bump(v *semver.Version, m Magnitude, by Initiator) *semver.Version {
	major, minor, patch := v.Major(), v.Minor(), v.Patch()
	switch m {
	case Major:
		if major > 0 || by == UserInitiated {
			major, minor, patch = major+1, 0, 0
		} else {
			minor, patch = minor+1, 0
		}
	case Minor:
		minor, patch = minor+1, 0
	default:
		patch++
	}
	return semver.New(major, minor, patch, "", "")
}

// Advisory returns a note worth surfacing to the user when bumping v by m,
// or "" when there is nothing to say.
func Advisory(v *semver.Version, m Magnitude) string {
	if m == Minor && v.Major() == 0 {
		return fmt.Sprintf("minor bump of %s is a breaking change under pre-1.0 semver", v)
	}
	return ""
}

// WithPrerelease returns v with the prerelease label attached.
func WithPrerelease(v *semver.Version) *semver.Version {
	return semver.New(v.Major(), v.Minor(), v.Patch(), PrereleaseLabel, "")
}

// StripPrerelease returns v without prerelease label or build metadata.
func StripPrerelease(v *semver.Version) *semver.Version {
	return semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
}

// AtLeastStable strips any prerelease label and lifts 0.0.x versions to 0.1.0
// so that compatible (patch) bumps become possible.
func AtLeastStable(v *semver.Version) *semver.Version {
	out := StripPrerelease(v)
	if out.Major() == 0 && out.Minor() == 0 {
		return semver.New(0, 1, 0, "", "")
	}
	return out
}

// FirstPrerelease returns v with the first numbered prerelease label
// (e.g. 1.2.0 -> 1.2.0-alpha.1).
func FirstPrerelease(v *semver.Version) *semver.Version {
	return semver.New(v.Major(), v.Minor(), v.Patch(), PrereleaseLabel+".1", "")
}

// Max returns the greater of a and b by semver precedence. Nil operands are
// ignored; Max(nil, nil) is nil.
func Max(a, b *semver.Version) *semver.Version {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.GreaterThan(a):
		return b
	default:
		return a
	}
}

// Parse parses a strict major.minor.patch[-pre][+build] version.
func Parse(s string) (*semver.Version, error) {
	return semver.StrictNewVersion(strings.TrimSpace(s))
}

// MustParse is like [Parse] but panics on error. Use only for constants and tests.
func MustParse(s string) *semver.Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}
