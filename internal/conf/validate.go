// validate.go settings validation
package conf

import (
	"errors"
	"fmt"
	"strconv"
)

// ValidateSettings checks the loaded settings for values that cannot work at runtime.
func ValidateSettings(settings *Settings) error {
	var validationErrors []string

	if err := validateCameraSettings(&settings.Camera); err != nil {
		validationErrors = append(validationErrors, err.Error())
	}

	if err := validateDetectorSettings(&settings.Detector); err != nil {
		validationErrors = append(validationErrors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		validationErrors = append(validationErrors, err.Error())
	}

	if !settings.Output.SQLite.Enabled {
		validationErrors = append(validationErrors, "output.sqlite.enabled must be true, SQLite is the only supported store")
	} else if settings.Output.SQLite.Path == "" {
		validationErrors = append(validationErrors, "output.sqlite.path must not be empty")
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("validation failed: %v", validationErrors)
	}

	return nil
}

func validateCameraSettings(settings *CameraSettings) error {
	switch settings.Source {
	case "device":
		if settings.DeviceID < 0 {
			return errors.New("camera.deviceid must not be negative")
		}
	case "file":
		if settings.TestImage == "" {
			return errors.New("camera.testimage must be set when camera.source is file")
		}
	default:
		return fmt.Errorf("camera.source must be \"device\" or \"file\", got %q", settings.Source)
	}

	if settings.TimeoutMs <= 0 {
		return errors.New("camera.timeoutms must be greater than 0")
	}

	return nil
}

func validateDetectorSettings(settings *DetectorSettings) error {
	if settings.ModelPath == "" {
		return errors.New("detector.modelpath must not be empty")
	}
	if settings.LabelPath == "" {
		return errors.New("detector.labelpath must not be empty")
	}
	if settings.Threshold < 0.1 || settings.Threshold > 1.0 {
		return fmt.Errorf("detector.threshold must be between 0.1 and 1.0, got %g", settings.Threshold)
	}
	if settings.InputSize <= 0 {
		return errors.New("detector.inputsize must be greater than 0")
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a number between 1 and 65535, got %q", settings.Port)
	}
	return nil
}
