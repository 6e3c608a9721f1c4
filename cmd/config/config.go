// Package config implements the command that shows and rewrites the active
// configuration file.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/visionqc/visionqc-go/internal/conf"
)

// Command returns the config subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the active configuration file",
		Long: "Prints the path of the configuration file in use. With --save the " +
			"current effective settings, including command line overrides, are " +
			"written back to it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(settings, save)
		},
	}

	cmd.PersistentFlags().BoolVar(&save, "save", false, "Write the effective settings back to the config file")

	return cmd
}

func runConfig(settings *conf.Settings, save bool) error {
	configPath, err := conf.FindConfigFile()
	if err != nil {
		return err
	}

	fmt.Println("Config file:", configPath)

	if save {
		if err := conf.SaveYAMLConfig(configPath, settings); err != nil {
			return err
		}
		fmt.Println("Settings saved to:", configPath)
	}

	return nil
}
