package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// validSettings returns a settings struct that passes validation.
func validSettings() *Settings {
	return &Settings{
		Camera: CameraSettings{
			Source:    "file",
			TestImage: "/var/lib/visionqc/test.png",
			TimeoutMs: 5000,
		},
		Detector: DetectorSettings{
			ModelPath: "/var/lib/visionqc/model.tflite",
			LabelPath: "/var/lib/visionqc/labels.txt",
			Threshold: 0.5,
			InputSize: 640,
		},
		Output: OutputSettings{
			SQLite: SQLiteSettings{Enabled: true, Path: "visionqc.db"},
		},
		WebServer: WebServerSettings{Enabled: true, Host: "0.0.0.0", Port: "8080"},
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{
			name:   "valid settings",
			mutate: func(s *Settings) {},
		},
		{
			name:   "device source",
			mutate: func(s *Settings) { s.Camera.Source = "device"; s.Camera.DeviceID = 0 },
		},
		{
			name:    "unknown camera source",
			mutate:  func(s *Settings) { s.Camera.Source = "rtsp" },
			wantErr: true,
		},
		{
			name:    "negative device id",
			mutate:  func(s *Settings) { s.Camera.Source = "device"; s.Camera.DeviceID = -1 },
			wantErr: true,
		},
		{
			name:    "file source without test image",
			mutate:  func(s *Settings) { s.Camera.TestImage = "" },
			wantErr: true,
		},
		{
			name:    "zero capture timeout",
			mutate:  func(s *Settings) { s.Camera.TimeoutMs = 0 },
			wantErr: true,
		},
		{
			name:    "missing model path",
			mutate:  func(s *Settings) { s.Detector.ModelPath = "" },
			wantErr: true,
		},
		{
			name:    "missing label path",
			mutate:  func(s *Settings) { s.Detector.LabelPath = "" },
			wantErr: true,
		},
		{
			name:    "threshold too low",
			mutate:  func(s *Settings) { s.Detector.Threshold = 0.05 },
			wantErr: true,
		},
		{
			name:    "threshold too high",
			mutate:  func(s *Settings) { s.Detector.Threshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero input size",
			mutate:  func(s *Settings) { s.Detector.InputSize = 0 },
			wantErr: true,
		},
		{
			name:    "sqlite disabled",
			mutate:  func(s *Settings) { s.Output.SQLite.Enabled = false },
			wantErr: true,
		},
		{
			name:    "empty sqlite path",
			mutate:  func(s *Settings) { s.Output.SQLite.Path = "" },
			wantErr: true,
		},
		{
			name:    "bad web server port",
			mutate:  func(s *Settings) { s.WebServer.Port = "http" },
			wantErr: true,
		},
		{
			name:    "out of range web server port",
			mutate:  func(s *Settings) { s.WebServer.Port = "70000" },
			wantErr: true,
		},
		{
			name:   "web server disabled skips port check",
			mutate: func(s *Settings) { s.WebServer.Enabled = false; s.WebServer.Port = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := validSettings()
			tt.mutate(settings)

			err := ValidateSettings(settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
