package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName        = "anaplan-go"
	configFileName = "config.toml"
)

// DefaultConfigPath is the config file used when neither ANAPLAN_GO_CONFIG
// nor --config names one. It is empty when the home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(configDir(runtime.GOOS, os.Getenv("XDG_CONFIG_HOME"), home), configFileName)
}

// configDir places the config under XDG_CONFIG_HOME on Linux, Application
// Support on macOS and ~/.config elsewhere.
func configDir(goos, xdgConfigHome, home string) string {
	switch {
	case goos == "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case goos == "linux" && xdgConfigHome != "":
		return filepath.Join(xdgConfigHome, appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}
