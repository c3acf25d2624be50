package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autorelease/internal/domain/commands"
	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// PlanController handles the "plan" subcommand (read-only mode).
type PlanController struct {
	command commands.Plan
}

// NewPlanController creates a new PlanController.
func NewPlanController(command commands.Plan) *PlanController {
	return &PlanController{command: command}
}

// GetBind returns the Cobra command metadata for the plan controller.
func (it *PlanController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "plan [path]",
		Short: "Compute pending releases without writing anything",
		Long: `Walk every package's history since its last publication and report
which packages need a release, the next version of each, and the
commits that drive the decision.

Nothing is written; this is the command to wire into CI checks.`,
	}
}

// Execute runs the read-only planning mode.
func (it *PlanController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	verbose, _ := cmd.Flags().GetBool("verbose")

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	if planErr := it.command.Execute(ctx, settings, commands.PlanOptions{
		Root:    rootArg(args),
		Verbose: verbose,
	}); planErr != nil {
		logger.Errorf("Plan failed: %v", planErr)
	}
}
