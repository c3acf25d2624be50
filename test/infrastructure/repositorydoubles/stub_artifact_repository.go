//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// SpyArtifactResolver implements both artifact resolution interfaces with
// per-package canned snapshots. Materialize is called from the planner's
// parallel compatibility checks, so the spy fields are guarded.
type SpyArtifactResolver struct {
	Snapshots        map[string]*entities.PublishedSnapshot // package name -> snapshot
	ResolveErr       error
	IsConfigured     bool
	MaterializedDirs map[string]string // package name -> directory
	MaterializeErr   error

	// --- spy ---
	ResolvedPackages []string
	MaterializeCalls []string

	mu sync.Mutex
}

var (
	_ repositories.RegistryArtifactRepository = (*SpyArtifactResolver)(nil)
	_ repositories.TagArtifactRepository      = (*SpyArtifactResolver)(nil)
)

func (s *SpyArtifactResolver) LatestPublished(
	_ context.Context, pkg *entities.Package,
) (*entities.PublishedSnapshot, error) {
	s.mu.Lock()
	s.ResolvedPackages = append(s.ResolvedPackages, pkg.Name)
	s.mu.Unlock()
	if s.ResolveErr != nil {
		return nil, s.ResolveErr
	}
	return s.Snapshots[pkg.Name], nil
}

func (s *SpyArtifactResolver) Materialize(
	_ context.Context, pkg *entities.Package, _ *entities.PublishedSnapshot,
) (string, error) {
	s.mu.Lock()
	s.MaterializeCalls = append(s.MaterializeCalls, pkg.Name)
	s.mu.Unlock()
	if s.MaterializeErr != nil {
		return "", s.MaterializeErr
	}
	return s.MaterializedDirs[pkg.Name], nil
}

func (s *SpyArtifactResolver) Configured() bool {
	return s.IsConfigured
}

// StubPackageFilesRepository reads the packaged file set from the
// FakeWorkingCopy's current checkout position.
type StubPackageFilesRepository struct {
	Copy *FakeWorkingCopy
}

var _ repositories.PackageFilesRepository = (*StubPackageFilesRepository)(nil)

func (s *StubPackageFilesRepository) FilesFor(
	_ string, pkg *entities.Package,
) (map[string]string, error) {
	files := s.Copy.State().PackageFiles[pkg.Name]
	if files == nil {
		return map[string]string{}, nil
	}
	return files, nil
}
