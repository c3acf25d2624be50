package commands

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// Plan is the interface for the plan command (read-only preview).
type Plan interface {
	Execute(ctx context.Context, settings *entities.Settings, opts PlanOptions) error
}

// PlanOptions holds runtime options for a plan run.
type PlanOptions struct {
	Root    string
	Verbose bool
}

// PlanCommand computes and reports the pending update plan without touching
// any file.
type PlanCommand struct {
	pipeline *WorkspacePipeline
}

// NewPlanCommand creates a new PlanCommand over the shared pipeline.
func NewPlanCommand(pipeline *WorkspacePipeline) *PlanCommand {
	return &PlanCommand{pipeline: pipeline}
}

// Execute runs the planning pipeline and logs every pending release.
func (it *PlanCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts PlanOptions,
) error {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	workspace, plan, err := it.pipeline.ComputePlan(ctx, opts.Root, settings)
	if err != nil {
		return err
	}

	if plan.IsEmpty() {
		logger.Infof("All %d packages are up to date", len(workspace.Packages))
		return nil
	}

	incompatible := 0
	for i := range plan.Updates {
		update := &plan.Updates[i]
		reportUpdate(update)

		if update.Result.Compatibility.Outcome == entities.CompatibilityIncompatible {
			incompatible++
		}
		logger.Debugf("Changelog section for %q:\n%s", update.Package.Name, update.Result.Changelog)
	}

	if plan.WorkspaceVersion != nil {
		logger.Infof("Workspace version moves to %s", plan.WorkspaceVersion)
	}

	logger.Infof(
		"Plan complete: %d of %d packages release, %d incompatible",
		len(plan.Updates), len(workspace.Packages), incompatible,
	)
	return nil
}

// reportUpdate logs one plan entry in a single scannable line.
func reportUpdate(update *entities.PackageUpdate) {
	reason := update.Result.Increment.String()
	switch {
	case update.Propagated:
		reason = "dependency bump"
	case !update.Diff.RemoteExists:
		reason = "first release"
	case !update.Diff.IsVersionPublished:
		reason = "manifest already bumped"
	case update.Result.Increment == entities.IncrementNone:
		reason = "version alignment"
	}

	logger.Infof(
		"Package %q: %s -> %s (%s, %d commits)",
		update.Package.Name,
		update.Package.Version,
		update.Result.NextVersion,
		reason,
		len(update.Diff.Commits),
	)

	if update.Result.Compatibility.Outcome == entities.CompatibilityIncompatible {
		logger.Warnf(
			"Package %q breaks its published interface:\n%s",
			update.Package.Name, update.Result.Compatibility.Details,
		)
	}
}
