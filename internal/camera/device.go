//go:build gocv
// +build gocv

package camera

import (
	"context"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/visionqc/visionqc-go/internal/errors"
)

// DeviceSource grabs frames from a camera device through OpenCV. The device is
// opened per capture and closed afterwards so other processes can use it
// between cycles, matching how the station camera is shared on the line.
type DeviceSource struct {
	deviceID int
	logger   *slog.Logger
}

// NewDeviceSource creates a capture source for the given camera index.
func NewDeviceSource(deviceID int, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceSource{deviceID: deviceID, logger: logger}, nil
}

// Capture grabs a single frame and returns it PNG encoded.
func (s *DeviceSource) Capture(ctx context.Context) ([]byte, error) {
	type grab struct {
		data []byte
		err  error
	}
	result := make(chan grab, 1)

	go func() {
		data, err := s.grabFrame()
		result <- grab{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.New(ctx.Err()).
			Component("camera").
			Category(errors.CategoryTimeout).
			Context("device_id", s.deviceID).
			Build()
	case r := <-result:
		return r.data, r.err
	}
}

func (s *DeviceSource) grabFrame() ([]byte, error) {
	cam, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryDeviceUnavailable).
			Context("device_id", s.deviceID).
			Build()
	}
	defer cam.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := cam.Read(&frame); !ok || frame.Empty() {
		return nil, errors.Newf("camera %d returned no frame", s.deviceID).
			Component("camera").
			Category(errors.CategoryDeviceUnavailable).
			Build()
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, frame)
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryImageDecode).
			Build()
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
