package entities

import (
	"github.com/Masterminds/semver/v3"
)

// Diff is the set of source-history changes attributable to a package since
// its last publication. Created empty per package per run, populated by the
// diff engine, then treated as read-only.
type Diff struct {
	// Commits contributing to the pending release, newest first.
	Commits []Commit

	// RemoteExists is true when a published snapshot (registry artifact or
	// release tag) was found for the package.
	RemoteExists bool

	// IsVersionPublished is false when the local manifest version is already
	// ahead of the last published version: the user pre-bumped manually and
	// no further auto-increment must occur.
	IsVersionPublished bool

	// LastPublishedVersion is set for reporting when IsVersionPublished is
	// false.
	LastPublishedVersion *semver.Version

	// Compatibility carries the optional library surface check outcome.
	// Reporting only, never an input to the increment decision.
	Compatibility CompatibilityResult
}

// NewDiff returns a Diff in its initial state.
func NewDiff() *Diff {
	return &Diff{IsVersionPublished: true}
}

// NeedsRelease reports whether the diff warrants a plan entry on its own:
// pending commits exist, the package was never published, or the local
// version still awaits publication.
func (d *Diff) NeedsRelease() bool {
	return len(d.Commits) > 0 || !d.RemoteExists || !d.IsVersionPublished
}
