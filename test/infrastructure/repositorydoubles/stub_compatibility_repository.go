//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// CompatCheck records a single compatibility check invocation.
type CompatCheck struct {
	Tool         string
	LocalDir     string
	PublishedDir string
}

// SpyCompatibilityRepository implements repositories.CompatibilityRepository
// with a canned result. The planner checks packages in parallel, so the spy
// fields are guarded.
type SpyCompatibilityRepository struct {
	Result entities.CompatibilityResult

	// --- spy ---
	Checks []CompatCheck

	mu sync.Mutex
}

var _ repositories.CompatibilityRepository = (*SpyCompatibilityRepository)(nil)

func (s *SpyCompatibilityRepository) Check(
	_ context.Context, tool, localDir, publishedDir string,
) entities.CompatibilityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Checks = append(s.Checks, CompatCheck{Tool: tool, LocalDir: localDir, PublishedDir: publishedDir})
	return s.Result
}
