// Package version implements the semantic-version arithmetic behind wsbump.
//
// # Magnitudes
//
// Every bump has a [Magnitude] (Patch < Minor < Major). The magnitude of an
// existing change is derived from the two versions with [MagnitudeOf], never
// stored, so an instruction can always be re-evaluated against the package's
// current version.
//
// # Derived versus user-initiated bumps
//
// [Bump] takes an explicit [Initiator]. A major bump the user asked for always
// leaves 0.x behind (0.3.1 -> 1.0.0). A major bump derived from a dependency
// change keeps API-unstable packages on 0.x by bumping the minor field
// instead (0.3.1 -> 0.4.0), since under pre-1.0 semver that is already the
// breaking-change signal.
//
// # Prerelease line
//
// Versions pushed onto the prerelease channel carry the fixed [PrereleaseLabel]
// via [WithPrerelease].
package version
