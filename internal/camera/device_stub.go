//go:build !gocv
// +build !gocv

package camera

import (
	"context"
	"log/slog"

	"github.com/visionqc/visionqc-go/internal/errors"
)

// DeviceSource is a stub when the binary is built without the gocv tag.
type DeviceSource struct {
	deviceID int
}

// NewDeviceSource returns a source that reports the camera as unavailable.
func NewDeviceSource(deviceID int, logger *slog.Logger) (Source, error) {
	_ = logger
	return &DeviceSource{deviceID: deviceID}, nil
}

// Capture fails, device capture requires the gocv build tag.
func (s *DeviceSource) Capture(ctx context.Context) ([]byte, error) {
	_ = ctx
	return nil, errors.Newf("camera capture requires a build with the gocv tag").
		Component("camera").
		Category(errors.CategoryDeviceUnavailable).
		Context("device_id", s.deviceID).
		Build()
}
