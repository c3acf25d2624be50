package repositories

import (
	"github.com/Masterminds/semver/v3"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// ManifestRepository reads the workspace and package manifests from disk.
// Reads always reflect the current working-copy state, so the diff engine can
// re-read a package manifest after every checkout.
type ManifestRepository interface {
	// LoadWorkspace parses the workspace manifest at root, resolves the
	// member globs, parses every member package manifest and the lock file.
	LoadWorkspace(root string) (*entities.Workspace, error)

	// ReadPackageManifest parses a single package manifest. dir is relative
	// to the workspace root.
	ReadPackageManifest(root, dir string) (*entities.Package, error)

	// ReadWorkspaceVersion reads only the shared version attribute of the
	// workspace manifest, nil when it declares none.
	ReadWorkspaceVersion(root string) (*semver.Version, error)
}

// ManifestWriterRepository persists the decided versions back into the
// manifests. Formatting of untouched attributes is preserved.
type ManifestWriterRepository interface {
	// RenderPlan computes every manifest edit the plan implies and returns
	// the new file contents keyed by path relative to the workspace root.
	// Nothing is written to disk.
	RenderPlan(workspace *entities.Workspace, plan *entities.UpdatePlan) (map[string]string, error)

	// ApplyPlan writes the rendered edits into the working tree.
	ApplyPlan(workspace *entities.Workspace, plan *entities.UpdatePlan) error
}
