// Package serve implements the command that runs the station: barcode
// listener, inspection pipeline and the HTTP history surface.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/visionqc/visionqc-go/internal/api"
	"github.com/visionqc/visionqc-go/internal/barcode"
	"github.com/visionqc/visionqc-go/internal/camera"
	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/datastore"
	"github.com/visionqc/visionqc-go/internal/detector"
	"github.com/visionqc/visionqc-go/internal/export"
	"github.com/visionqc/visionqc-go/internal/inspection"
	"github.com/visionqc/visionqc-go/internal/logging"
	"github.com/visionqc/visionqc-go/internal/observability"
)

// listenerStopTimeout bounds the wait for the barcode listener at shutdown.
// An unresponsive listener is logged and left to the process exit.
const listenerStopTimeout = 2 * time.Second

// Command returns the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inspection station",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStation(settings)
		},
	}

	cmd.PersistentFlags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "Port to listen on")
	cmd.PersistentFlags().BoolVar(&settings.Barcode.Enabled, "barcode", settings.Barcode.Enabled, "Start the barcode scanner listener")

	return cmd
}

func runStation(settings *conf.Settings) error {
	log := logging.ForService("station")

	// Mirror station logs to the configured rotated file.
	if settings.Main.Log.Enabled {
		fileLog, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "station", slog.LevelInfo)
		if err != nil {
			log.Warn("file logging disabled", "path", settings.Main.Log.Path, "error", err)
		} else {
			log = fileLog
			defer closeLog()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailbox := barcode.NewMailbox()

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

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	processor := inspection.New(settings, store, source, det, detector.Annotate,
		metrics, logging.ForService("inspection"))
	processor.Start()
	defer processor.Stop()

	// Barcode listener runs for the lifetime of the process.
	var listener *barcode.Listener
	listenerCtx, cancelListener := context.WithCancel(ctx)
	defer cancelListener()
	if settings.Barcode.Enabled {
		listener, err = barcode.OpenDevice(mailbox, settings.Barcode.DevicePath,
			logging.ForService("barcode"))
		if err != nil {
			return err
		}
		listener.Start(listenerCtx)
		log.Info("barcode listener started", "device", settings.Barcode.DevicePath)
	}

	exporter := &export.Exporter{
		Dir:     settings.Export.Path,
		Station: settings.Main.Name,
	}

	e := echo.New()
	e.HideBanner = true
	api.New(e, store, settings, processor, exporter, metrics, logging.ForService("api"))

	addr := settings.WebServer.Host + ":" + settings.WebServer.Port

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("station ready", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown failed", "error", err)
		}

		cancelListener()
		if listener != nil && !listener.Wait(listenerStopTimeout) {
			log.Warn("barcode listener did not stop in time, leaking until exit")
		}
		return nil
	})

	return g.Wait()
}
