package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// compatParallelism bounds concurrent compatibility tool runs. The checks are
// read-only over already-materialized directories, unlike the history walk.
const compatParallelism = 4

// UpdatePlanner assembles the release plan for one workspace run: it walks
// every package's pending diff, decides the next versions, unifies them
// across groups and the workspace, cascades bumps through local dependents
// and renders the changelog section for every planned entry.
type UpdatePlanner struct {
	engine      *DiffEngine
	coordinator *VersionCoordinator
	propagator  *DependencyPropagator
	registry    repositories.RegistryArtifactRepository
	tags        repositories.TagArtifactRepository
	changelogs  repositories.ChangelogRepository
	compat      repositories.CompatibilityRepository
	settings    *entities.Settings

	compatAnnounced bool
}

// NewUpdatePlanner assembles the planner for one run.
func NewUpdatePlanner(
	engine *DiffEngine,
	coordinator *VersionCoordinator,
	propagator *DependencyPropagator,
	registry repositories.RegistryArtifactRepository,
	tags repositories.TagArtifactRepository,
	changelogs repositories.ChangelogRepository,
	compat repositories.CompatibilityRepository,
	settings *entities.Settings,
) *UpdatePlanner {
	return &UpdatePlanner{
		engine:      engine,
		coordinator: coordinator,
		propagator:  propagator,
		registry:    registry,
		tags:        tags,
		changelogs:  changelogs,
		compat:      compat,
		settings:    settings,
	}
}

// pendingDiff carries one package's walk outcome through the planning stages.
type pendingDiff struct {
	pkg      *entities.Package
	diff     *entities.Diff
	snapshot *entities.PublishedSnapshot
}

// Plan computes the full update plan for the workspace. Packages with no
// pending changes stay out of the plan but still participate in dependency
// propagation as up-to-date neighbors.
func (p *UpdatePlanner) Plan(
	ctx context.Context,
	workspace *entities.Workspace,
) (*entities.UpdatePlan, error) {
	pending, err := p.collectDiffs(ctx, workspace)
	if err != nil {
		return nil, err
	}

	p.runCompatChecks(ctx, workspace, pending)

	candidates := make(map[string]*semver.Version)
	increments := make(map[string]entities.VersionIncrement)
	for i := range pending {
		entry := &pending[i]
		if !entry.diff.NeedsRelease() {
			continue
		}
		next, increment := p.nextVersion(entry)
		candidates[entry.pkg.Name] = next
		increments[entry.pkg.Name] = increment
	}

	unified, workspaceVersion := p.coordinator.Coordinate(workspace, candidates)
	propagated := p.propagator.Propagate(workspace, unified)

	return p.assemble(workspace, pending, unified, increments, propagated, workspaceVersion), nil
}

// collectDiffs walks every package strictly in sequence; the walks share one
// working copy. Cancellation is honored between packages, never mid-walk.
func (p *UpdatePlanner) collectDiffs(
	ctx context.Context,
	workspace *entities.Workspace,
) ([]pendingDiff, error) {
	pending := make([]pendingDiff, 0, len(workspace.Packages))
	for _, pkg := range workspace.Packages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		logger.Debugf("Diffing package %q since its last publication", pkg.Name)
		diff, snapshot, err := p.engine.Diff(ctx, workspace, pkg)
		if err != nil {
			return nil, err
		}
		pending = append(pending, pendingDiff{pkg: pkg, diff: diff, snapshot: snapshot})
	}
	return pending, nil
}

// runCompatChecks compares the local library surface of every releasing
// library package against its published snapshot, bounded in parallel.
// Outcomes are reporting only; they never change the version decision.
func (p *UpdatePlanner) runCompatChecks(
	ctx context.Context,
	workspace *entities.Workspace,
	pending []pendingDiff,
) {
	if !p.settings.Compat.Enabled {
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(compatParallelism)
	var mu sync.Mutex

	for i := range pending {
		entry := &pending[i]
		if !entry.pkg.IsLibrary() || entry.snapshot == nil || !entry.diff.NeedsRelease() {
			continue
		}

		p.announceCompatCheck()
		group.Go(func() error {
			result := p.checkCompat(groupCtx, workspace, entry.pkg, entry.snapshot)
			mu.Lock()
			entry.diff.Compatibility = result
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait() // the checks report through the result, never an error
}

// announceCompatCheck logs the tool banner once per run, no matter how many
// packages get checked. Always called from the serial scheduling loop.
func (p *UpdatePlanner) announceCompatCheck() {
	if p.compatAnnounced {
		return
	}
	p.compatAnnounced = true
	logger.Infof("Checking library compatibility with %q", p.settings.Compat.Tool)
}

func (p *UpdatePlanner) checkCompat(
	ctx context.Context,
	workspace *entities.Workspace,
	pkg *entities.Package,
	snapshot *entities.PublishedSnapshot,
) entities.CompatibilityResult {
	resolver := repositories.ArtifactRepository(p.tags)
	if snapshot.Source == entities.SnapshotFromRegistry {
		resolver = p.registry
	}

	publishedDir, err := resolver.Materialize(ctx, pkg, snapshot)
	if err != nil {
		logger.Warnf(
			"Package %q: could not materialize version %s for the compatibility check: %v",
			pkg.Name, snapshot.Version, err,
		)
		return entities.CompatibilityResult{
			Outcome: entities.CompatibilitySkipped,
			Details: err.Error(),
		}
	}
	defer func() {
		if removeErr := os.RemoveAll(publishedDir); removeErr != nil {
			logger.Debugf("Could not remove %q: %v", publishedDir, removeErr)
		}
	}()

	localDir := filepath.Join(workspace.Root, pkg.Dir)
	return p.compat.Check(ctx, p.settings.Compat.Tool, localDir, publishedDir)
}

// nextVersion turns one pending diff into a raw version candidate. Packages
// that were never published, or whose manifest version was bumped by hand
// ahead of publication, release at their current version without a computed
// increment.
func (p *UpdatePlanner) nextVersion(entry *pendingDiff) (*semver.Version, entities.VersionIncrement) {
	if !entry.diff.RemoteExists || !entry.diff.IsVersionPublished {
		return entry.pkg.Version, entities.IncrementNone
	}

	increment := entities.NextIncrement(entry.pkg.Version, entry.diff.Commits, p.settings.Release)
	return entities.ApplyIncrement(entry.pkg.Version, increment), increment
}

// assemble builds the ordered plan: packages releasing on their own merits or
// pulled along by coordination first, in workspace order, then propagation
// entries in wave order.
func (p *UpdatePlanner) assemble(
	workspace *entities.Workspace,
	pending []pendingDiff,
	unified map[string]*semver.Version,
	increments map[string]entities.VersionIncrement,
	propagated []PropagatedUpdate,
	workspaceVersion *semver.Version,
) *entities.UpdatePlan {
	byName := make(map[string]*pendingDiff, len(pending))
	for i := range pending {
		byName[pending[i].pkg.Name] = &pending[i]
	}

	updates := make([]entities.PackageUpdate, 0, len(unified)+len(propagated))
	for _, pkg := range workspace.Packages {
		next, planned := unified[pkg.Name]
		if !planned {
			continue
		}

		entry := byName[pkg.Name]
		increment, ownRelease := increments[pkg.Name]
		if !ownRelease {
			// Pulled along by a version group or the workspace version with
			// no commits of its own.
			entry.diff.Commits = append(entry.diff.Commits, p.alignmentCommit(pkg))
			increment = entities.IncrementNone
		}

		updates = append(updates, entities.PackageUpdate{
			Package: pkg,
			Diff:    entry.diff,
			Result: entities.UpdateResult{
				NextVersion:   next,
				Increment:     increment,
				Changelog:     p.renderSection(entry, byName, next),
				Compatibility: entry.diff.Compatibility,
			},
		})
	}

	for _, item := range propagated {
		entry := byName[item.Package.Name]
		entry.diff.Commits = append(entry.diff.Commits, item.Commit)

		updates = append(updates, entities.PackageUpdate{
			Package: item.Package,
			Diff:    entry.diff,
			Result: entities.UpdateResult{
				NextVersion: item.NextVersion,
				Increment:   propagationIncrement(item.Package),
				Changelog:   p.renderSection(entry, byName, item.NextVersion),
			},
			Propagated: true,
		})
	}

	return &entities.UpdatePlan{Updates: updates, WorkspaceVersion: workspaceVersion}
}

// renderSection produces the changelog section for one planned entry,
// folding in commits from configured sibling packages and applying the
// configured ordering.
func (p *UpdatePlanner) renderSection(
	entry *pendingDiff,
	byName map[string]*pendingDiff,
	next *semver.Version,
) string {
	commits := entry.diff.Commits
	for _, sibling := range p.settings.PackageSettingsFor(entry.pkg.Name).ChangelogInclude {
		included, ok := byName[sibling]
		if !ok {
			logger.Warnf(
				"Package %q: changelog_include names unknown package %q",
				entry.pkg.Name, sibling,
			)
			continue
		}
		commits = append(commits, included.diff.Commits...)
	}

	ordered := p.orderCommits(entities.DedupeCommits(commits))
	return p.changelogs.Render(entry.pkg, next, p.previousVersion(entry), ordered)
}

// orderCommits lays out commits per the configured changelog order. The walk
// records them newest first.
func (p *UpdatePlanner) orderCommits(commits []entities.Commit) []entities.Commit {
	ordered := make([]entities.Commit, len(commits))
	copy(ordered, commits)
	if p.settings.ChangelogOrder == entities.OrderOldestFirst {
		for left, right := 0, len(ordered)-1; left < right; left, right = left+1, right-1 {
			ordered[left], ordered[right] = ordered[right], ordered[left]
		}
	}
	return ordered
}

func (p *UpdatePlanner) previousVersion(entry *pendingDiff) *semver.Version {
	if entry.snapshot == nil {
		return nil
	}
	return entry.snapshot.Version
}

// alignmentCommit explains a release scheduled purely by version
// coordination.
func (p *UpdatePlanner) alignmentCommit(pkg *entities.Package) entities.Commit {
	if group := p.settings.GroupFor(pkg.Name); group != nil {
		return entities.Commit{
			Message: "chore(release): aligned the version with group " + group.Name,
		}
	}
	return entities.Commit{
		Message: "chore(release): aligned the version with the workspace",
	}
}

// propagationIncrement labels the bump applied by the propagator.
func propagationIncrement(pkg *entities.Package) entities.VersionIncrement {
	if pkg.Version != nil && pkg.Version.Prerelease() != "" {
		return entities.IncrementPrerelease
	}
	return entities.IncrementPatch
}
