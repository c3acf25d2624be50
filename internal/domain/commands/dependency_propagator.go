package commands

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// PropagatedUpdate is a release scheduled solely because a local dependency's
// version advanced.
type PropagatedUpdate struct {
	Package     *entities.Package
	NextVersion *semver.Version
	Commit      entities.Commit
}

// DependencyPropagator cascades version bumps through the local dependency
// graph: packages whose path-referenced dependencies moved beyond their
// declared constraints are scheduled for a follow-up release.
type DependencyPropagator struct{}

// NewDependencyPropagator creates the propagator.
func NewDependencyPropagator() *DependencyPropagator {
	return &DependencyPropagator{}
}

// Propagate iterates in waves until a fixed point: a candidate is scheduled
// when any of its local version-constrained dependencies sits in the changed
// set at a version its constraint no longer accepts. Every package is
// scheduled at most once per run, regardless of how tangled the manifests
// are. The changed set is only extended between waves, so membership tests
// within one wave are independent.
func (p *DependencyPropagator) Propagate(
	workspace *entities.Workspace,
	changed map[string]*semver.Version,
) []PropagatedUpdate {
	current := make(map[string]*semver.Version, len(changed))
	for name, version := range changed {
		current[name] = version
	}

	processed := make(map[string]bool)
	var scheduled []PropagatedUpdate

	for {
		var wave []PropagatedUpdate
		for _, pkg := range workspace.Packages {
			if _, alreadyChanged := current[pkg.Name]; alreadyChanged {
				continue
			}
			if processed[pkg.Name] {
				continue
			}

			triggers := triggeringDependencies(pkg, current)
			if len(triggers) == 0 {
				continue
			}

			processed[pkg.Name] = true
			wave = append(wave, PropagatedUpdate{
				Package:     pkg,
				NextVersion: propagationBump(pkg.Version),
				Commit:      dependencyBumpCommit(triggers),
			})
		}

		if len(wave) == 0 {
			return scheduled
		}
		for _, update := range wave {
			current[update.Package.Name] = update.NextVersion
		}
		scheduled = append(scheduled, wave...)
	}
}

// triggeringDependencies names the local dependencies of pkg that moved to a
// version outside their declared constraint.
func triggeringDependencies(pkg *entities.Package, changed map[string]*semver.Version) []string {
	var triggers []string
	for _, dependency := range pkg.Dependencies {
		if !dependency.IsLocalLink() {
			continue
		}
		newVersion, ok := changed[dependency.Name]
		if !ok {
			continue
		}

		constraint, err := semver.NewConstraint(dependency.Constraint)
		if err != nil {
			logger.Warnf(
				"Package %q declares unparseable constraint %q on %q; skipping propagation for it",
				pkg.Name, dependency.Constraint, dependency.Name,
			)
			continue
		}
		if !constraint.Check(newVersion) {
			triggers = append(triggers, dependency.Name)
		}
	}
	return triggers
}

// propagationBump computes the follow-up version: prerelease when the current
// version carries one, patch otherwise.
func propagationBump(current *semver.Version) *semver.Version {
	if current.Prerelease() != "" {
		return entities.ApplyIncrement(current, entities.IncrementPrerelease)
	}
	return entities.ApplyIncrement(current, entities.IncrementPatch)
}

// dependencyBumpCommit is the single generated release entry for a propagated
// update. It carries no commit id because it exists in no repository history.
func dependencyBumpCommit(dependencies []string) entities.Commit {
	sorted := make([]string, len(dependencies))
	copy(sorted, dependencies)
	sort.Strings(sorted)
	return entities.Commit{
		Message: "chore(deps): updated the following local dependencies: " + strings.Join(sorted, ", "),
	}
}
