// Package export implements the command that writes a stored record to files.
package export

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/export"
)

// Command returns the export subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var serial int

	cmd := &cobra.Command{
		Use:   "export [record id]",
		Short: "Export a detection record to image files and a text sidecar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}
			return runExport(settings, uint(id), serial)
		},
	}

	cmd.PersistentFlags().IntVar(&serial, "serial", 1, "Serial number used in export file names")

	return cmd
}

func runExport(settings *conf.Settings, id uint, serial int) error {
	store := datastore.New(settings, nil)
	if store == nil {
		return fmt.Errorf("no database configured")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.RecordForExport(id)
	if err != nil {
		return err
	}

	exporter := &export.Exporter{
		Dir:     settings.Export.Path,
		Station: settings.Main.Name,
	}

	files, err := exporter.Export(rec, serial)
	if err != nil {
		return err
	}

	fmt.Println("Exported:")
	fmt.Println(" ", files.RawImage)
	if files.AnnotatedImage != "" {
		fmt.Println(" ", files.AnnotatedImage)
	}
	fmt.Println(" ", files.Sidecar)
	return nil
}
