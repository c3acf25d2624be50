package compat

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// incompatibleExitCode is the tool's verdict exit code; anything else is a
// tool failure.
const incompatibleExitCode = 1

// ExecCompatibilityRepository shells out to the configured compatibility tool
// as "<tool> check --baseline <published> --current <local>". The check is
// advisory, so every failure mode degrades to a skipped outcome.
type ExecCompatibilityRepository struct {
	missingToolWarning sync.Once
}

// NewExecCompatibilityRepository creates the checker.
func NewExecCompatibilityRepository() repositories.CompatibilityRepository {
	return &ExecCompatibilityRepository{}
}

// Check compares the local package surface against the published one.
func (r *ExecCompatibilityRepository) Check(
	ctx context.Context,
	tool, localDir, publishedDir string,
) entities.CompatibilityResult {
	binary, err := exec.LookPath(tool)
	if err != nil {
		r.missingToolWarning.Do(func() {
			logger.Warnf("Compatibility tool %q is not installed; checks skipped", tool)
		})
		return entities.CompatibilityResult{
			Outcome: entities.CompatibilitySkipped,
			Details: err.Error(),
		}
	}

	cmd := exec.CommandContext(ctx, binary,
		"check", "--baseline", publishedDir, "--current", localDir)
	output, runErr := cmd.CombinedOutput()
	if runErr == nil {
		return entities.CompatibilityResult{Outcome: entities.CompatibilityCompatible}
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == incompatibleExitCode {
		return entities.CompatibilityResult{
			Outcome: entities.CompatibilityIncompatible,
			Details: strings.TrimSpace(string(output)),
		}
	}

	logger.Warnf("Compatibility tool %q failed: %v", tool, runErr)
	return entities.CompatibilityResult{
		Outcome: entities.CompatibilitySkipped,
		Details: strings.TrimSpace(string(output)),
	}
}
