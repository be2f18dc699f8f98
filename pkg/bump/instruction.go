package bump

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// Channel is one of the two parallel release lines.
type Channel int

const (
	Stable Channel = iota
	Prerelease
)

// String returns "stable" or "prerelease".
func (c Channel) String() string {
	if c == Prerelease {
		return "prerelease"
	}
	return "stable"
}

// ParseChannel parses "stable" or "prerelease".
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stable":
		return Stable, nil
	case "prerelease":
		return Prerelease, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown channel %q (want stable or prerelease)", s)
}

// Instruction is a planned version change of one package on one channel.
type Instruction struct {
	Package *workspace.Package
	Channel Channel
	Next    *semver.Version
}

// Name returns the package name.
func (i *Instruction) Name() string { return i.Package.Name() }

// Current returns the package version before the change.
func (i *Instruction) Current() *semver.Version { return i.Package.Version() }

// Magnitude derives the change magnitude from the current and next versions.
func (i *Instruction) Magnitude() version.Magnitude {
	return version.MagnitudeOf(i.Package.Version(), i.Next)
}

// Equal reports whether both instructions name the same package on the same
// channel and carry the same next version. A nil instruction equals only nil.
func (i *Instruction) Equal(o *Instruction) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Channel == o.Channel && i.Name() == o.Name() && i.Next.Equal(o.Next)
}

func (i *Instruction) String() string {
	return fmt.Sprintf("%s %s -> %s", i.Name(), i.Current(), i.Next)
}

// ParseInstruction splits "<package> <magnitude>" on the first space. The
// magnitude token is case-insensitive.
func ParseInstruction(text string) (string, version.Magnitude, error) {
	name, mag, ok := strings.Cut(strings.TrimSpace(text), " ")
	if !ok || name == "" {
		return "", 0, errors.New(errors.ErrCodeInvalidInstruction, "invalid bump instruction %q: want \"<package> <major|minor|patch>\"", text)
	}
	m, err := version.ParseMagnitude(mag)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInvalidInstruction, err, "invalid bump instruction %q", text)
	}
	if err := errors.ValidateCratesPackageName(name); err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInvalidInstruction, err, "invalid bump instruction %q", text)
	}
	return name, m, nil
}

// ResolveInstruction turns instruction text into a concrete Instruction for
// the given channel.
//
// On the stable channel the package must exist in the stable workspace and
// is bumped from its current version.
//
// On the prerelease channel the candidate is always computed from the current
// stable version so the prerelease line stays anchored to stable. A package
// without a stable counterpart yields (nil, nil), as does a prerelease that
// is already ahead of stable within the requested tier. The caller should log
// such no-ops and skip them.
func ResolveInstruction(stable, prerelease *workspace.Workspace, text string, ch Channel) (*Instruction, error) {
	name, m, err := ParseInstruction(text)
	if err != nil {
		return nil, err
	}

	st, hasStable := stable.Package(name)
	if ch == Stable {
		if !hasStable {
			return nil, errors.New(errors.ErrCodePackageNotFound, "package %q not found in stable workspace", name)
		}
		return &Instruction{
			Package: st,
			Channel: Stable,
			Next:    version.Bump(st.Version(), m, version.UserInitiated),
		}, nil
	}

	if !hasStable {
		return nil, nil
	}
	pre, ok := prerelease.Package(name)
	if !ok {
		return nil, errors.New(errors.ErrCodePackageNotFound, "package %q exists on stable but not in prerelease workspace", name)
	}
	if aheadWithin(pre.Version(), st.Version(), m) {
		return nil, nil
	}
	return &Instruction{
		Package: pre,
		Channel: Prerelease,
		Next:    version.WithPrerelease(version.Bump(st.Version(), m, version.UserInitiated)),
	}, nil
}

// aheadWithin reports whether pre already leads st at tier m or any tier
// above it. Each tier only counts when the tiers above it are equal, so
// 1.0.1-alpha is ahead of 1.0.0 at the patch tier but not at the minor tier.
func aheadWithin(pre, st *semver.Version, m version.Magnitude) bool {
	aheadMajor := pre.Major() > st.Major()
	aheadMinor := pre.Major() == st.Major() && pre.Minor() > st.Minor()
	aheadPatch := pre.Major() == st.Major() && pre.Minor() == st.Minor() && pre.Patch() > st.Patch()

	switch m {
	case version.Major:
		return aheadMajor
	case version.Minor:
		return aheadMajor || aheadMinor
	default:
		return aheadMajor || aheadMinor || aheadPatch
	}
}
