// Package camera acquires product frames for inspection.
package camera

import (
	"context"
	"log/slog"
	"os"

	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/errors"
)

// Source acquires one encoded frame per call. Implementations must honor
// context cancellation so a hung device cannot stall a capture cycle forever.
type Source interface {
	Capture(ctx context.Context) ([]byte, error)
}

// NewSource builds the capture source selected in settings.
func NewSource(settings *conf.Settings, logger *slog.Logger) (Source, error) {
	switch settings.Camera.Source {
	case "file":
		return &FileSource{Path: settings.Camera.TestImage}, nil
	case "device":
		return NewDeviceSource(settings.Camera.DeviceID, logger)
	default:
		return nil, errors.Newf("unknown camera source %q", settings.Camera.Source).
			Component("camera").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// FileSource returns the contents of a fixed image file on every capture. Used
// on bench setups without a camera and in tests.
type FileSource struct {
	Path string
}

// Capture reads the configured test image.
func (s *FileSource) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCancellation).
			Build()
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryFileIO).
			Context("path", s.Path).
			Build()
	}
	if len(data) == 0 {
		return nil, errors.Newf("test image %s is empty", s.Path).
			Component("camera").
			Category(errors.CategoryImageDecode).
			Build()
	}
	return data, nil
}
