package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/visionqc/visionqc-go/cmd/capture"
	"github.com/visionqc/visionqc-go/cmd/config"
	"github.com/visionqc/visionqc-go/cmd/export"
	"github.com/visionqc/visionqc-go/cmd/serve"
	"github.com/visionqc/visionqc-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "visionqc",
		Short: "VisionQC inspection station CLI",
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		capture.Command(settings),
		export.Command(settings),
		config.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Output.SQLite.Path, "db", viper.GetString("output.sqlite.path"), "Path to the SQLite database file")
	rootCmd.PersistentFlags().StringVar(&settings.Camera.Source, "source", viper.GetString("camera.source"), "Capture source, \"device\" or \"file\"")
	rootCmd.PersistentFlags().StringVar(&settings.Detector.ModelPath, "model", viper.GetString("detector.modelpath"), "Path to the TensorFlow Lite model file")
	rootCmd.PersistentFlags().Float64VarP(&settings.Detector.Threshold, "threshold", "t", viper.GetFloat64("detector.threshold"), "Confidence threshold for detections, value between 0.1 to 1.0")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
