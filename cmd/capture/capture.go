// Package capture implements the command that runs one inspection cycle from
// the command line.
package capture

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/visionqc/visionqc-go/internal/barcode"
	"github.com/visionqc/visionqc-go/internal/camera"
	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/detector"
	"github.com/visionqc/visionqc-go/internal/inspection"
	"github.com/visionqc/visionqc-go/internal/logging"
)

// Command returns the capture subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var scannedBarcode string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run one capture-and-inspect cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(settings, scannedBarcode)
		},
	}

	cmd.PersistentFlags().StringVar(&scannedBarcode, "barcode", "", "Barcode to attach to the record")

	return cmd
}

func runCapture(settings *conf.Settings, scannedBarcode string) error {
	mailbox := barcode.NewMailbox()
	if scannedBarcode != "" {
		mailbox.Set(scannedBarcode)
	}

	store := datastore.New(settings, mailbox)
	if store == nil {
		return fmt.Errorf("no database configured")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	det, err := detector.New(settings)
	if err != nil {
		return err
	}

	source, err := camera.NewSource(settings, logging.ForService("camera"))
	if err != nil {
		return err
	}

	processor := inspection.New(settings, store, source, det, detector.Annotate,
		nil, logging.ForService("inspection"))
	processor.Start()
	defer processor.Stop()

	result, err := processor.RunCycle(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Record %d saved: %s (%d objects)\n",
		result.RecordID, result.Defect, result.Objects)
	return nil
}
