// utils.go config path helpers
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the default config paths for the current operating system.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Local", "visionqc"),
			".",
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "visionqc"),
			".",
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the active config file from the default paths.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		configPath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", fmt.Errorf("config file not found in default locations")
}

// GetBasePath expands a relative path against the first default config path and
// makes sure the directory exists. Absolute paths are returned as-is.
func GetBasePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil || len(configPaths) == 0 {
		return path
	}

	basePath := filepath.Join(configPaths[0], path)
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return path
	}

	return basePath
}
