package repositories

import (
	"github.com/Masterminds/semver/v3"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// ChangelogFactory builds a renderer for the run's settings; the settings
// decide the tag naming used in version compare links.
type ChangelogFactory func(settings *entities.Settings) ChangelogRepository

// ChangelogRepository renders release notes and maintains the per-package
// changelog files. Commits arrive already ordered; the renderer never
// reorders them.
type ChangelogRepository interface {
	// Render produces one version section for the release.
	Render(pkg *entities.Package, next, previous *semver.Version, commits []entities.Commit) string

	// Merged returns the changelog path (relative to root) and its full
	// content with the section spliced in, without writing anything.
	Merged(root string, pkg *entities.Package, section string) (string, string, error)

	// Write persists the merged changelog for the package.
	Write(root string, pkg *entities.Package, section string) error
}
