package settings

import (
	"os"
	"path/filepath"
)

// GetConfigFolder returns the folder holding every persisted file of the
// application: override when set, else <user config dir>/wildbits.
func GetConfigFolder(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, SETTINGS_DIR), nil
}
