// config.go: settings struct for the VisionQC station and the functions to load and save it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// Log rotation types
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled  bool   // true to enable this log
	Path     string // path to log file
	Rotation string // rotation type: daily, weekly or size
	MaxSize  int64  // max size in bytes for size rotation
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // station name, used in logs and exports
	Log  LogConfig // main log settings
}

// CameraSettings contains settings for the capture source.
type CameraSettings struct {
	Source    string // "device" to grab from a camera, "file" to read a fixed test image
	DeviceID  int    // camera device index for the device source
	TestImage string // path to the test image for the file source
	TimeoutMs int    // capture timeout in milliseconds
}

// DetectorSettings contains settings for the defect detection model.
type DetectorSettings struct {
	ModelPath string  // path to the TensorFlow Lite model file
	LabelPath string  // path to the class label file
	Threshold float64 // confidence threshold for reported detections, 0.1 to 1.0
	InputSize int     // square input size the model expects, in pixels
}

// BarcodeSettings contains settings for the barcode scanner listener.
type BarcodeSettings struct {
	Enabled    bool   // true to start the scanner listener
	DevicePath string // path to the scanner device stream, e.g. /dev/hidraw0
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Enabled bool   // true to enable the SQLite store
	Path    string // path to the database file
	Debug   bool   // true to log SQL statements
}

// OutputSettings contains settings for persistence outputs.
type OutputSettings struct {
	SQLite SQLiteSettings
}

// WebServerSettings contains settings for the embedded HTTP server.
type WebServerSettings struct {
	Enabled bool   // true to enable the web server
	Host    string // address to bind to
	Port    string // port to listen on
	Debug   bool   // true to enable request logging
}

// ExportSettings contains settings for record export.
type ExportSettings struct {
	Path string // directory export files are written to
}

// Settings is the top level configuration struct.
type Settings struct {
	Debug bool // true to enable debug output

	Main     MainSettings
	Camera   CameraSettings
	Detector DetectorSettings
	Barcode  BarcodeSettings
	Output   OutputSettings
	Export   ExportSettings

	WebServer WebServerSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write the YAML data to a temporary file first so the
	// replacement of the config file is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
