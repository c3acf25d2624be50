package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autorelease/internal/domain/commands"
	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// ReleaseController handles the "release-pr" subcommand.
type ReleaseController struct {
	command commands.ReleasePR
}

// NewReleaseController creates a new ReleaseController.
func NewReleaseController(command commands.ReleasePR) *ReleaseController {
	return &ReleaseController{command: command}
}

// GetBind returns the Cobra command metadata for the release controller.
func (it *ReleaseController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "release-pr [path]",
		Short: "Open a pull request carrying the pending releases",
		Long: `Compute the update plan and open a pull request on the configured
forge with every manifest and changelog change, instead of writing
to the local working copy.

Requires forge settings (type, token, organization, repository).
Skips when a release PR is already open.`,
	}
}

// Execute runs the release pull request mode.
func (it *ReleaseController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	if releaseErr := it.command.Execute(ctx, settings, commands.ReleasePROptions{
		Root:    rootArg(args),
		DryRun:  dryRun,
		Verbose: verbose,
	}); releaseErr != nil {
		logger.Errorf("Release PR failed: %v", releaseErr)
	}
}
