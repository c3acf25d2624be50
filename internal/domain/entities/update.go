package entities

import (
	"github.com/Masterminds/semver/v3"
)

// UpdateResult is the computed release decision for one package.
type UpdateResult struct {
	NextVersion   *semver.Version
	Increment     VersionIncrement
	Changelog     string
	Compatibility CompatibilityResult
}

// PackageUpdate pairs a package with its pending diff and release decision.
type PackageUpdate struct {
	Package    *Package
	Diff       *Diff
	Result     UpdateResult
	Propagated bool // Scheduled by dependency propagation, not by own commits
}

// UpdatePlan is the ordered set of release decisions for one run.
type UpdatePlan struct {
	Updates []PackageUpdate

	// WorkspaceVersion is the new shared version, nil when unchanged.
	WorkspaceVersion *semver.Version
}

// IsEmpty reports whether the plan releases nothing.
func (p *UpdatePlan) IsEmpty() bool {
	return len(p.Updates) == 0 && p.WorkspaceVersion == nil
}

// UpdateFor returns the plan entry for the named package, or nil.
func (p *UpdatePlan) UpdateFor(name string) *PackageUpdate {
	for i := range p.Updates {
		if p.Updates[i].Package.Name == name {
			return &p.Updates[i]
		}
	}
	return nil
}
