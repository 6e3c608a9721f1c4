// defaults.go default values for the viper configuration
package conf

import (
	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for the configuration parameters.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main settings
	viper.SetDefault("main.name", "VisionQC")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "log/visionqc.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10*1024*1024)

	// Camera settings
	viper.SetDefault("camera.source", "device")
	viper.SetDefault("camera.deviceid", 0)
	viper.SetDefault("camera.testimage", "testdata/sample.png")
	viper.SetDefault("camera.timeoutms", 2000)

	// Detector settings
	viper.SetDefault("detector.modelpath", "models/defects.tflite")
	viper.SetDefault("detector.labelpath", "models/labels.txt")
	viper.SetDefault("detector.threshold", 0.5)
	viper.SetDefault("detector.inputsize", 640)

	// Barcode scanner settings
	viper.SetDefault("barcode.enabled", false)
	viper.SetDefault("barcode.devicepath", "/dev/hidraw0")

	// Output settings
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "detections.db")
	viper.SetDefault("output.sqlite.debug", false)

	// Export settings
	viper.SetDefault("export.path", "exports")

	// Webserver settings
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)
}
