package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// Fatal diff conditions requiring user intervention.
var (
	ErrDirtyWorkingTree   = errors.New("working tree has uncommitted changes")
	ErrTagWithoutArtifact = errors.New("release tag exists but the registry has no artifact")
	ErrLocalVersionBehind = errors.New("local version is behind the published version")
	ErrWalkInFlight       = errors.New("a history walk is already in flight for this working copy")
)

// walkState tracks the engine's position in its checkout cycle. Exactly one
// walk may be active per working copy; the state makes violations loud.
type walkState int

const (
	stateAtHead walkState = iota
	stateWalking
	stateRestoring
)

// DiffEngine computes the pending source changes of one package since its
// last publication by checking out historical commits and comparing package
// content against the published snapshot. The walk mutates the shared
// working copy, so calls are strictly sequential.
type DiffEngine struct {
	gateway   repositories.SourceControlRepository
	registry  repositories.RegistryArtifactRepository
	tags      repositories.TagArtifactRepository
	files     repositories.PackageFilesRepository
	manifests repositories.ManifestRepository
	settings  *entities.Settings

	state walkState
}

// NewDiffEngine assembles the engine for one run over one working copy.
func NewDiffEngine(
	gateway repositories.SourceControlRepository,
	registry repositories.RegistryArtifactRepository,
	tags repositories.TagArtifactRepository,
	files repositories.PackageFilesRepository,
	manifests repositories.ManifestRepository,
	settings *entities.Settings,
) *DiffEngine {
	return &DiffEngine{
		gateway:   gateway,
		registry:  registry,
		tags:      tags,
		files:     files,
		manifests: manifests,
		settings:  settings,
		state:     stateAtHead,
	}
}

// publication bundles the resolved snapshot with every commit known to mark
// the previous release, used to cut the walk short.
type publication struct {
	snapshot    *entities.PublishedSnapshot
	stopCommits []string
}

// Diff walks the history of one package and returns its pending changes
// along with the published snapshot the walk compared against (nil when the
// package was never published).
func (e *DiffEngine) Diff(
	ctx context.Context,
	workspace *entities.Workspace,
	pkg *entities.Package,
) (*entities.Diff, *entities.PublishedSnapshot, error) {
	if e.state != stateAtHead {
		return nil, nil, ErrWalkInFlight
	}

	published, err := e.resolvePublication(ctx, pkg)
	if err != nil {
		return nil, nil, err
	}

	clean, err := e.gateway.IsClean()
	if err != nil {
		return nil, nil, fmt.Errorf("package %q: checking working tree: %w", pkg.Name, err)
	}
	if !clean && !e.settings.AllowDirty {
		return nil, nil, fmt.Errorf("%w: %s", ErrDirtyWorkingTree, e.gateway.Root())
	}

	diff := entities.NewDiff()
	diff.RemoteExists = published.snapshot != nil

	if walkErr := e.walk(workspace, pkg, published, diff); walkErr != nil {
		return nil, nil, walkErr
	}
	return diff, published.snapshot, nil
}

// resolvePublication locates the most relevant published reference for the
// package: the higher of the registry artifact and the release tag.
func (e *DiffEngine) resolvePublication(
	ctx context.Context,
	pkg *entities.Package,
) (*publication, error) {
	fromRegistry, err := e.registry.LatestPublished(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("package %q: resolving registry artifact: %w", pkg.Name, err)
	}
	fromTag, err := e.tags.LatestPublished(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("package %q: resolving release tag: %w", pkg.Name, err)
	}

	if fromTag != nil && fromRegistry == nil && e.registry.Configured() {
		return nil, fmt.Errorf(
			"%w: package %q is tagged %s; publish it or delete the tag",
			ErrTagWithoutArtifact, pkg.Name, fromTag.TagName,
		)
	}

	snapshot, contentMismatch := entities.PreferSnapshot(fromRegistry, fromTag)
	if contentMismatch {
		logger.Warnf(
			"Package %q version %s exists in the registry and as tag %s with diverging content; using the registry",
			pkg.Name, snapshot.Version, fromTag.TagName,
		)
	}

	if snapshot != nil && pkg.Version != nil && pkg.Version.LessThan(snapshot.Version) {
		return nil, fmt.Errorf(
			"%w: package %q manifest says %s but %s was already published",
			ErrLocalVersionBehind, pkg.Name, pkg.Version, snapshot.Version,
		)
	}

	var stops []string
	for _, candidate := range []*entities.PublishedSnapshot{fromRegistry, fromTag} {
		if candidate != nil && candidate.PublishedAtCommit != "" {
			stops = append(stops, candidate.PublishedAtCommit)
		}
	}
	return &publication{snapshot: snapshot, stopCommits: stops}, nil
}

// walk steps backwards one path-touching commit at a time, recording
// contributing commits until the published boundary is found or history is
// exhausted. The working copy is restored to head on every exit.
func (e *DiffEngine) walk(
	workspace *entities.Workspace,
	pkg *entities.Package,
	published *publication,
	diff *entities.Diff,
) (err error) {
	paths := pkg.Paths()

	current, err := e.gateway.CheckoutLastCommitAtPaths(paths)
	if errors.Is(err, repositories.ErrNoMoreHistory) {
		return nil // nothing ever touched the package paths
	}
	if err != nil {
		return fmt.Errorf("package %q: checking out last commit: %w", pkg.Name, err)
	}

	e.state = stateWalking
	defer func() {
		e.state = stateRestoring
		if restoreErr := e.gateway.CheckoutHead(); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("package %q: restoring head: %w", pkg.Name, restoreErr))
		}
		e.state = stateAtHead
	}()

	for {
		done := e.evaluatePosition(workspace, pkg, published.snapshot, diff, current)
		if done {
			return nil
		}

		previous, stepErr := e.gateway.CheckoutPreviousCommitAtPaths(current.ID, paths)
		if errors.Is(stepErr, repositories.ErrNoMoreHistory) {
			return nil
		}
		if stepErr != nil {
			return fmt.Errorf("package %q: stepping past commit %s: %w", pkg.Name, current.ID, stepErr)
		}
		current = previous

		if e.reachedPublication(current.ID, published.stopCommits) {
			return nil
		}
	}
}

// evaluatePosition applies the per-commit rules at the currently checked-out
// position. It reports true when the walk must stop.
func (e *DiffEngine) evaluatePosition(
	workspace *entities.Workspace,
	pkg *entities.Package,
	snapshot *entities.PublishedSnapshot,
	diff *entities.Diff,
	current entities.Commit,
) bool {
	if snapshot == nil {
		e.record(diff, pkg, current)
		return false
	}

	position, err := e.manifests.ReadPackageManifest(e.gateway.Root(), pkg.Dir)
	if err != nil {
		// No readable manifest at this point in history: assume the change
		// is relevant rather than failing the run.
		logger.Debugf("Package %q: manifest unreadable at %s: %v", pkg.Name, current.ID, err)
		e.record(diff, pkg, current)
		return false
	}

	positionVersion, err := e.effectiveVersion(position)
	if err != nil {
		logger.Debugf("Package %q: version unresolvable at %s: %v", pkg.Name, current.ID, err)
		e.record(diff, pkg, current)
		return false
	}

	if position.Name == pkg.Name && positionVersion != nil {
		switch {
		case positionVersion.Equal(snapshot.Version):
			return e.compareContent(workspace, pkg, snapshot, diff, current)
		case positionVersion.GreaterThan(snapshot.Version):
			// The version was bumped by hand and never published. Release it
			// as-is; no further auto-increment.
			diff.IsVersionPublished = false
			diff.LastPublishedVersion = snapshot.Version
			return true
		}
	}

	e.record(diff, pkg, current)
	return false
}

// compareContent decides whether the checked-out package content matches the
// published snapshot. A match is the walk boundary; reaching it with no
// recorded commits triggers the dependency-requirement check.
func (e *DiffEngine) compareContent(
	workspace *entities.Workspace,
	pkg *entities.Package,
	snapshot *entities.PublishedSnapshot,
	diff *entities.Diff,
	current entities.Commit,
) bool {
	local, err := e.files.FilesFor(e.gateway.Root(), pkg)
	if err != nil {
		// Cannot enumerate the packaged set here: conservatively assume the
		// change is relevant.
		logger.Debugf("Package %q: file set unavailable at %s: %v", pkg.Name, current.ID, err)
		e.record(diff, pkg, current)
		return false
	}

	if !contentEquals(local, snapshot.Files) {
		e.record(diff, pkg, current)
		return false
	}

	if len(diff.Commits) == 0 {
		if synthetic, changed := dependencyUpdateCommit(workspace, pkg, snapshot); changed {
			diff.Commits = append(diff.Commits, synthetic)
		}
	}
	return true
}

// contentEquals compares the local packaged file set against the snapshot,
// ignoring the manifest (already compared), lock files, and snapshot entries
// that do not exist locally.
func contentEquals(local, published map[string]string) bool {
	for path, hash := range local {
		if isComparisonExempt(path) {
			continue
		}
		publishedHash, ok := published[path]
		if !ok || publishedHash != hash {
			return false
		}
	}
	return true
}

func isComparisonExempt(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	return base == entities.PackageManifestName || base == entities.LockFileName
}

// dependencyUpdateCommit builds the synthetic commit recorded when package
// content is unchanged but its dependency requirements moved since
// publication. Binary packages also account for lock entries of their
// dependencies.
func dependencyUpdateCommit(
	workspace *entities.Workspace,
	pkg *entities.Package,
	snapshot *entities.PublishedSnapshot,
) (entities.Commit, bool) {
	changed := make(map[string]bool)

	for _, dependency := range pkg.Dependencies {
		if snapshot.Dependencies[dependency.Name] != dependency.Constraint {
			changed[dependency.Name] = true
		}
	}
	for name, requirement := range snapshot.Dependencies {
		if requirement != "" && dependencyByName(pkg, name) == nil {
			changed[name] = true // dropped since publication
		}
	}

	if !pkg.IsLibrary() {
		for _, dependency := range pkg.Dependencies {
			entry, ok := workspace.Lock[dependency.Name]
			if !ok {
				continue
			}
			if snapshot.Locked[dependency.Name] != entry.Version {
				changed[dependency.Name] = true
			}
		}
	}

	if len(changed) == 0 {
		return entities.Commit{}, false
	}

	names := make([]string, 0, len(changed))
	for name := range changed {
		names = append(names, name)
	}
	sort.Strings(names)

	return entities.Commit{
		Message: "chore(deps): updated dependency requirements: " + strings.Join(names, ", "),
	}, true
}

func dependencyByName(pkg *entities.Package, name string) *entities.Dependency {
	for i := range pkg.Dependencies {
		if pkg.Dependencies[i].Name == name {
			return &pkg.Dependencies[i]
		}
	}
	return nil
}

// record appends the commit when the change actually intersects the package's
// relevant path set.
func (e *DiffEngine) record(diff *entities.Diff, pkg *entities.Package, commit entities.Commit) {
	touched, err := e.gateway.FilesChangedIn(commit.ID)
	if err != nil {
		diff.Commits = append(diff.Commits, commit) // assume relevant
		return
	}
	for _, file := range touched {
		for _, prefix := range pkg.Paths() {
			if file == prefix || strings.HasPrefix(file, prefix+"/") {
				diff.Commits = append(diff.Commits, commit)
				return
			}
		}
	}
}

// reachedPublication reports whether the walk position is an ancestor of any
// commit known to mark the previous release; walking further cannot add new
// information.
func (e *DiffEngine) reachedPublication(current string, stopCommits []string) bool {
	for _, stop := range stopCommits {
		isAncestor, err := e.gateway.IsAncestor(current, stop)
		if err != nil {
			continue // unknown commit id on this side of history
		}
		if isAncestor {
			return true
		}
	}
	return false
}

// effectiveVersion resolves a manifest's version, following workspace
// inheritance at the current checkout position.
func (e *DiffEngine) effectiveVersion(position *entities.Package) (*semver.Version, error) {
	if !position.InheritsWorkspace {
		return position.Version, nil
	}
	return e.manifests.ReadWorkspaceVersion(e.gateway.Root())
}
