package gittag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	logger "github.com/sirupsen/logrus"
	xsemver "golang.org/x/mod/semver"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/hclmanifest"
)

const (
	versionPlaceholder = "{version}"

	snapshotDirMode  = 0o755
	snapshotFileMode = 0o644
)

// GitTagArtifactRepository resolves published snapshots from release tags in
// the working copy's history. The snapshot content is read from the tagged
// commit's tree, never from the working copy, so resolution is safe at any
// point of a history walk.
type GitTagArtifactRepository struct {
	gateway  repositories.SourceControlRepository
	settings *entities.Settings
}

// NewGitTagArtifactRepository creates a tag resolver bound to one working copy.
func NewGitTagArtifactRepository(
	gateway repositories.SourceControlRepository,
	settings *entities.Settings,
) repositories.TagArtifactRepository {
	return &GitTagArtifactRepository{gateway: gateway, settings: settings}
}

// LatestPublished scans all tags matching the package's tag pattern and
// builds the snapshot of the highest version found, nil when no tag matches.
func (r *GitTagArtifactRepository) LatestPublished(
	_ context.Context,
	pkg *entities.Package,
) (*entities.PublishedSnapshot, error) {
	tag, rawVersion, err := r.highestReleaseTag(pkg)
	if err != nil || tag == "" {
		return nil, err
	}

	version, err := semver.NewVersion(rawVersion)
	if err != nil {
		return nil, fmt.Errorf("tag %q version %q is not semantic: %w", tag, rawVersion, err)
	}

	commit, err := r.gateway.TagCommit(tag)
	if err != nil {
		return nil, err
	}
	if commit == "" {
		return nil, fmt.Errorf("tag %q disappeared while resolving", tag)
	}

	files, err := r.snapshotFiles(pkg, commit)
	if err != nil {
		return nil, err
	}

	dependencies := r.dependenciesAt(pkg, commit)
	locked, err := r.lockedAt(commit)
	if err != nil {
		return nil, err
	}

	return &entities.PublishedSnapshot{
		Source:            entities.SnapshotFromTag,
		Version:           version,
		Files:             files,
		PublishedAtCommit: commit,
		TagName:           tag,
		Dependencies:      dependencies,
		Locked:            locked,
	}, nil
}

// Materialize writes the tagged tree of the package directory to a temporary
// directory for the compatibility check.
func (r *GitTagArtifactRepository) Materialize(
	ctx context.Context,
	pkg *entities.Package,
	snapshot *entities.PublishedSnapshot,
) (dir string, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if snapshot.PublishedAtCommit == "" {
		return "", fmt.Errorf("snapshot of %q carries no commit to materialize from", pkg.Name)
	}

	tree, err := r.gateway.TreeFilesAt(snapshot.PublishedAtCommit, pkg.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to list tag content of %q: %w", pkg.Name, err)
	}

	dir, err = os.MkdirTemp("", "autorelease-"+pkg.Name+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	for rel := range tree {
		content, contentErr := r.gateway.FileContentAt(
			snapshot.PublishedAtCommit, path.Join(pkg.Dir, rel),
		)
		if contentErr != nil {
			return "", contentErr
		}

		target := filepath.Join(dir, filepath.FromSlash(rel))
		if mkdirErr := os.MkdirAll(filepath.Dir(target), snapshotDirMode); mkdirErr != nil {
			return "", fmt.Errorf("failed to lay out snapshot: %w", mkdirErr)
		}
		if writeErr := os.WriteFile(target, []byte(content), snapshotFileMode); writeErr != nil {
			return "", fmt.Errorf("failed to write snapshot file %q: %w", rel, writeErr)
		}
	}

	return dir, nil
}

// highestReleaseTag finds the tag carrying the highest version for the
// package's tag pattern. Tags whose extracted version is not semantic are
// ignored.
func (r *GitTagArtifactRepository) highestReleaseTag(pkg *entities.Package) (string, string, error) {
	pattern := strings.ReplaceAll(r.settings.TagPatternFor(pkg.Name), "{name}", pkg.Name)
	prefix, suffix, found := strings.Cut(pattern, versionPlaceholder)
	if !found {
		return "", "", fmt.Errorf(
			"tag pattern %q for package %q has no %s placeholder",
			pattern, pkg.Name, versionPlaceholder,
		)
	}

	tags, err := r.gateway.Tags()
	if err != nil {
		return "", "", err
	}

	var bestTag, bestVersion string
	for _, tag := range tags {
		if len(tag) <= len(prefix)+len(suffix) ||
			!strings.HasPrefix(tag, prefix) || !strings.HasSuffix(tag, suffix) {
			continue
		}

		raw := tag[len(prefix) : len(tag)-len(suffix)]
		if !xsemver.IsValid(normalizeVersion(raw)) {
			logger.Debugf("Tag %q does not carry a semantic version; ignored", tag)
			continue
		}

		if bestTag == "" || xsemver.Compare(normalizeVersion(raw), normalizeVersion(bestVersion)) > 0 {
			bestTag, bestVersion = tag, raw
		}
	}

	return bestTag, bestVersion, nil
}

// snapshotFiles hashes the package directory tree at the tagged commit, plus
// the external readme when the manifest declares one and the commit has it.
func (r *GitTagArtifactRepository) snapshotFiles(
	pkg *entities.Package,
	commit string,
) (map[string]string, error) {
	files, err := r.gateway.TreeFilesAt(commit, pkg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to hash tag content of %q: %w", pkg.Name, err)
	}

	if pkg.Readme != "" {
		content, readmeErr := r.gateway.FileContentAt(commit, pkg.Readme)
		switch {
		case errors.Is(readmeErr, repositories.ErrFileNotFound):
			// The readme did not exist at this release yet.
		case readmeErr != nil:
			return nil, readmeErr
		default:
			digest := sha256.Sum256([]byte(content))
			files[pkg.Readme] = hex.EncodeToString(digest[:])
		}
	}

	return files, nil
}

// dependenciesAt reads the dependency requirements recorded in the package
// manifest at the tagged commit. An unreadable manifest degrades to an empty
// requirement set with a warning rather than failing resolution.
func (r *GitTagArtifactRepository) dependenciesAt(
	pkg *entities.Package,
	commit string,
) map[string]string {
	manifestPath := path.Join(pkg.Dir, entities.PackageManifestName)
	content, err := r.gateway.FileContentAt(commit, manifestPath)
	if err != nil {
		logger.Warnf("Package %q has no readable manifest at tag commit %s: %v", pkg.Name, commit, err)
		return map[string]string{}
	}

	published, err := hclmanifest.ParsePackageManifest([]byte(content), manifestPath, pkg.Dir)
	if err != nil {
		logger.Warnf("Package %q has no readable manifest at tag commit %s: %v", pkg.Name, commit, err)
		return map[string]string{}
	}

	dependencies := make(map[string]string, len(published.Dependencies))
	for _, dependency := range published.Dependencies {
		dependencies[dependency.Name] = dependency.Constraint
	}
	return dependencies
}

// lockedAt reads the resolved dependency versions from the workspace lock
// file at the tagged commit, empty when the commit has none.
func (r *GitTagArtifactRepository) lockedAt(commit string) (map[string]string, error) {
	content, err := r.gateway.FileContentAt(commit, entities.LockFileName)
	if errors.Is(err, repositories.ErrFileNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries, err := hclmanifest.ParseLockContent([]byte(content), entities.LockFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lock file at %s: %w", commit, err)
	}

	locked := make(map[string]string, len(entries))
	for name, entry := range entries {
		locked[name] = entry.Version
	}
	return locked, nil
}

func normalizeVersion(version string) string {
	version = strings.TrimSpace(version)
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
