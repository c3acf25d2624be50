package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autorelease/internal/domain/commands"
	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// UpdateController handles the "update" subcommand (writes to the working copy).
type UpdateController struct {
	command commands.Update
}

// NewUpdateController creates a new UpdateController.
func NewUpdateController(command commands.Update) *UpdateController {
	return &UpdateController{command: command}
}

// GetBind returns the Cobra command metadata for the update controller.
func (it *UpdateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "update [path]",
		Short: "Write the planned versions and changelogs into the working copy",
		Long: `Compute the update plan, then write it back: package manifest
versions, dependency requirements of dependents, the workspace
version, lock entries and the per-package changelogs.

Use --dry-run to list the files that would change instead.`,
	}
}

// Execute runs the plan-and-write mode.
func (it *UpdateController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	if updateErr := it.command.Execute(ctx, settings, commands.UpdateOptions{
		Root:    rootArg(args),
		DryRun:  dryRun,
		Verbose: verbose,
	}); updateErr != nil {
		logger.Errorf("Update failed: %v", updateErr)
	}
}
