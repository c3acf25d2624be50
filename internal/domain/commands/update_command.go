package commands

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// Update is the interface for the update command (writes the plan back).
type Update interface {
	Execute(ctx context.Context, settings *entities.Settings, opts UpdateOptions) error
}

// UpdateOptions holds runtime options for an update run.
type UpdateOptions struct {
	Root    string
	DryRun  bool
	Verbose bool
}

// UpdateCommand computes the update plan and applies it to the working copy:
// manifest versions, dependency requirements, lock entries and changelogs.
type UpdateCommand struct {
	pipeline   *WorkspacePipeline
	writer     repositories.ManifestWriterRepository
	changelogs repositories.ChangelogFactory
}

// NewUpdateCommand creates a new UpdateCommand.
func NewUpdateCommand(
	pipeline *WorkspacePipeline,
	writer repositories.ManifestWriterRepository,
	changelogs repositories.ChangelogFactory,
) *UpdateCommand {
	return &UpdateCommand{
		pipeline:   pipeline,
		writer:     writer,
		changelogs: changelogs,
	}
}

// Execute plans and writes the release: every planned package gets its new
// version in the manifests and its changelog section merged in.
func (it *UpdateCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts UpdateOptions,
) error {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	workspace, plan, err := it.pipeline.ComputePlan(ctx, opts.Root, settings)
	if err != nil {
		return err
	}

	if plan.IsEmpty() {
		logger.Infof("All %d packages are up to date, nothing to write", len(workspace.Packages))
		return nil
	}

	for i := range plan.Updates {
		reportUpdate(&plan.Updates[i])
	}

	changelogs := it.changelogs(settings)

	if opts.DryRun {
		return it.reportDryRun(workspace, plan, changelogs)
	}

	if applyErr := it.writer.ApplyPlan(workspace, plan); applyErr != nil {
		return applyErr
	}

	written := 0
	errorCount := 0
	for i := range plan.Updates {
		update := &plan.Updates[i]
		writeErr := changelogs.Write(workspace.Root, update.Package, update.Result.Changelog)
		if writeErr != nil {
			logger.Errorf("Package %q: writing changelog: %v", update.Package.Name, writeErr)
			errorCount++
			continue
		}
		written++
	}

	logger.Infof(
		"Update complete: %d packages released, %d changelogs written, %d errors",
		len(plan.Updates), written, errorCount,
	)
	return nil
}

// reportDryRun logs every file the plan would touch without touching it.
func (it *UpdateCommand) reportDryRun(
	workspace *entities.Workspace,
	plan *entities.UpdatePlan,
	changelogs repositories.ChangelogRepository,
) error {
	rendered, err := it.writer.RenderPlan(workspace, plan)
	if err != nil {
		return err
	}
	for path, content := range rendered {
		logger.Infof("[dry-run] would write %s (%d bytes)", path, len(content))
	}

	for i := range plan.Updates {
		update := &plan.Updates[i]
		path, _, mergeErr := changelogs.Merged(workspace.Root, update.Package, update.Result.Changelog)
		if mergeErr != nil {
			logger.Errorf("Package %q: merging changelog: %v", update.Package.Name, mergeErr)
			continue
		}
		logger.Infof("[dry-run] would write %s", path)
	}
	return nil
}
