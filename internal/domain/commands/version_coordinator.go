package commands

import (
	"github.com/Masterminds/semver/v3"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// VersionCoordinator unifies raw per-package version candidates across
// declared version groups and the workspace-shared version. Workspace
// unification takes precedence over group membership.
type VersionCoordinator struct {
	settings *entities.Settings
}

// NewVersionCoordinator creates a coordinator for the run's settings.
func NewVersionCoordinator(settings *entities.Settings) *VersionCoordinator {
	return &VersionCoordinator{settings: settings}
}

// Coordinate returns the unified candidate map plus the new workspace
// version, nil when the workspace version is unchanged. The input map is not
// modified; group members pulled along without a candidate of their own are
// added to the result.
func (c *VersionCoordinator) Coordinate(
	workspace *entities.Workspace,
	candidates map[string]*semver.Version,
) (map[string]*semver.Version, *semver.Version) {
	unified := make(map[string]*semver.Version, len(candidates))
	for name, version := range candidates {
		unified[name] = version
	}

	c.applyGroups(workspace, unified)
	workspaceVersion := c.applyWorkspaceInheritance(workspace, unified)
	return unified, workspaceVersion
}

// applyGroups raises every member of a releasing group to the group's agreed
// version: the maximum of the members' candidates and current versions, so
// the shared version never sits below any member.
func (c *VersionCoordinator) applyGroups(
	workspace *entities.Workspace,
	unified map[string]*semver.Version,
) {
	for i := range c.settings.VersionGroups {
		group := &c.settings.VersionGroups[i]

		var agreed *semver.Version
		var hasCandidate bool
		members := make([]*entities.Package, 0, len(group.Members))

		for _, name := range group.Members {
			pkg := workspace.PackageByName(name)
			if pkg == nil {
				logger.Warnf("Version group %q names unknown package %q", group.Name, name)
				continue
			}
			if pkg.InheritsWorkspace {
				logger.Warnf(
					"Package %q inherits the workspace version; ignoring its membership in group %q",
					name, group.Name,
				)
				continue
			}

			members = append(members, pkg)
			if candidate, ok := unified[name]; ok {
				hasCandidate = true
				agreed = maxVersion(agreed, candidate)
			}
			agreed = maxVersion(agreed, pkg.Version)
		}

		if !hasCandidate {
			continue // no member releases, the group stays put
		}

		for _, pkg := range members {
			_, hadCandidate := unified[pkg.Name]
			if hadCandidate || agreed.GreaterThan(pkg.Version) {
				unified[pkg.Name] = agreed
			}
		}
	}
}

// applyWorkspaceInheritance computes the new shared version from the
// candidates of workspace-inheriting packages and aligns those packages with
// it. Only candidates at or above the current workspace version qualify.
func (c *VersionCoordinator) applyWorkspaceInheritance(
	workspace *entities.Workspace,
	unified map[string]*semver.Version,
) *semver.Version {
	if workspace.Version == nil {
		return nil
	}

	var next *semver.Version
	for _, pkg := range workspace.Packages {
		if !pkg.InheritsWorkspace {
			continue
		}
		candidate, ok := unified[pkg.Name]
		if !ok || candidate.LessThan(workspace.Version) {
			continue
		}
		next = maxVersion(next, candidate)
	}

	target := workspace.Version
	changed := next != nil && next.GreaterThan(workspace.Version)
	if changed {
		target = next
	}

	for _, pkg := range workspace.Packages {
		if !pkg.InheritsWorkspace {
			continue
		}
		if _, ok := unified[pkg.Name]; ok {
			unified[pkg.Name] = target
		}
	}

	if changed {
		return target
	}
	return nil
}

func maxVersion(a, b *semver.Version) *semver.Version {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.GreaterThan(a) {
		return b
	}
	return a
}
