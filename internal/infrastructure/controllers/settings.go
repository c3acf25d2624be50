package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// loadSettings resolves the run configuration: the --config flag wins, then
// the standard file locations, then built-in defaults (tag-only resolution,
// no forge). A --token flag overrides the forge token from any source.
func loadSettings(cmd *cobra.Command) (*entities.Settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	token, _ := cmd.Flags().GetString("token")

	if configPath == "" {
		found, err := entities.FindConfigFile()
		if err != nil {
			logger.Debugf("No config file found, using defaults: %v", err)
			settings := entities.DefaultSettings()
			applyTokenOverride(settings, token)
			return settings, nil
		}
		configPath = found
	}

	logger.Infof("Using config file: %s", configPath)

	settings, err := entities.NewSettings(configPath)
	if err != nil {
		return nil, err
	}
	applyTokenOverride(settings, token)
	return settings, nil
}

func applyTokenOverride(settings *entities.Settings, token string) {
	if token != "" {
		settings.Forge.Token = token
	}
}

// rootArg returns the workspace root from the positional argument, defaulting
// to the current directory.
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
