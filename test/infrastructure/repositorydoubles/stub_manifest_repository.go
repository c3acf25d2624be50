//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// StubManifestRepository serves package manifests from the FakeWorkingCopy's
// current checkout position, the way the real reader reflects the working
// tree between checkouts.
type StubManifestRepository struct {
	Copy      *FakeWorkingCopy
	Workspace *entities.Workspace
	LoadErr   error
}

var _ repositories.ManifestRepository = (*StubManifestRepository)(nil)

func (m *StubManifestRepository) LoadWorkspace(_ string) (*entities.Workspace, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Workspace, nil
}

func (m *StubManifestRepository) ReadPackageManifest(_, dir string) (*entities.Package, error) {
	manifest := m.Copy.State().Manifests[dir]
	if manifest == nil {
		return nil, fmt.Errorf("no manifest at %q for commit %s", dir, m.Copy.State().Commit.ID)
	}
	return manifest, nil
}

func (m *StubManifestRepository) ReadWorkspaceVersion(_ string) (*semver.Version, error) {
	return m.Copy.State().WorkspaceVersion, nil
}

// SpyManifestWriter implements repositories.ManifestWriterRepository with
// canned render output and call tracking.
type SpyManifestWriter struct {
	Rendered  map[string]string // path -> content returned by RenderPlan
	RenderErr error
	ApplyErr  error

	// --- spy ---
	RenderCalls int
	ApplyCalls  int
}

var _ repositories.ManifestWriterRepository = (*SpyManifestWriter)(nil)

func (w *SpyManifestWriter) RenderPlan(
	_ *entities.Workspace, _ *entities.UpdatePlan,
) (map[string]string, error) {
	w.RenderCalls++
	if w.RenderErr != nil {
		return nil, w.RenderErr
	}
	// Copied so callers can extend the result without mutating the script.
	rendered := make(map[string]string, len(w.Rendered))
	for path, content := range w.Rendered {
		rendered[path] = content
	}
	return rendered, nil
}

func (w *SpyManifestWriter) ApplyPlan(_ *entities.Workspace, _ *entities.UpdatePlan) error {
	w.ApplyCalls++
	return w.ApplyErr
}
