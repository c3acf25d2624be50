package entities

import (
	"github.com/spf13/cobra"
)

// ControllerBind is the Cobra command metadata exposed by a controller.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}

// Controller is a CLI-facing entrypoint wired as a Cobra subcommand.
type Controller interface {
	GetBind() ControllerBind
	Execute(cmd *cobra.Command, args []string)
}
