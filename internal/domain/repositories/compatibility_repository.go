package repositories

import (
	"context"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// CompatibilityRepository compares a package's local library surface against
// its published snapshot. Failures to run the check are reported through the
// result outcome, never as errors: the check is advisory.
type CompatibilityRepository interface {
	Check(ctx context.Context, tool, localDir, publishedDir string) entities.CompatibilityResult
}
