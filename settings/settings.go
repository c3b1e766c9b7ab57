package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
)

const (
	SETTINGS_DIR      = "wildbits"
	SETTINGS_FILENAME = "settings.json"
	NAMES_FILENAME    = "names.json"
	DB_FILENAME       = "wildbits.db"
	WILDBITS_VERSION  = "2.0.0"
)

func defaultExcludes() []string {
	return []string{".git/", "*.bak", "*.tmp", "Thumbs.db", ".DS_Store"}
}

// Setting of the application
type AppSettings struct {
	baseFolder string `json:"-"`
	// Unmarshalled from the JSON file
	Version       string   `json:"version"`
	Debug         bool     `json:"debug"`
	ScanExclude   []string `json:"scan_exclude"`
	UpdateExclude []string `json:"update_exclude"`
	ScanWorkers   int      `json:"scan_workers"`
	ScanCache     bool     `json:"scan_cache"`
	LastFolder    string   `json:"last_folder"`
}

// Constructor for settings, configFolder is created when missing
func NewAppSettings(configFolder string) *AppSettings {
	a := AppSettings{baseFolder: configFolder}
	if err := os.MkdirAll(configFolder, os.ModePerm); err != nil {
		zap.S().Warnf("failed to create config folder %v - %v", configFolder, err)
	}
	a.read()
	return &a
}

// Folder holding the settings, the overlay name file and the scan cache
func (a *AppSettings) BaseFolder() string {
	return a.baseFolder
}

// Get the settings file path
func (a *AppSettings) getPath() string {
	return filepath.Join(a.baseFolder, SETTINGS_FILENAME)
}

// Path of the user name overlay
func (a *AppSettings) NamesPath() string {
	return filepath.Join(a.baseFolder, NAMES_FILENAME)
}

// Path of the scan cache database
func (a *AppSettings) DBPath() string {
	return filepath.Join(a.baseFolder, DB_FILENAME)
}

// Read the file
func (a *AppSettings) read() {
	buf, bufErr := os.ReadFile(a.getPath())

	// If error fill with defaults
	if bufErr != nil {
		zap.S().Warnf("Missing or corrupted config file, creating a new one.")
		a.defaults()
		a.Save()
		return
	}
	if jsonErr := a.Load(buf); jsonErr != nil {
		zap.S().Warnf("Missing or corrupted config file, creating a new one.")
		a.defaults()
		a.Save()
		return
	}
	if a.migrate() {
		a.Save()
	}
}

// Fill the structure with default values
func (a *AppSettings) defaults() {
	a.Version = WILDBITS_VERSION
	a.Debug = false
	a.ScanExclude = defaultExcludes()
	a.UpdateExclude = defaultExcludes()
	a.ScanWorkers = runtime.NumCPU()
	a.ScanCache = true
	a.LastFolder = ""
}

// Save to file (ignore errors)
func (a *AppSettings) Save() {
	jsonBytes, jsonErr := json.MarshalIndent(a, "", "  ")
	if jsonErr != nil {
		return
	}
	if err := os.WriteFile(a.getPath(), jsonBytes, 0644); err != nil {
		zap.S().Warnf("failed to save settings - %v", err)
	}
}

// Return setting as JSON
func (a *AppSettings) ToJSON() string {
	jsonBytes, jsonErr := json.MarshalIndent(a, "", "  ")
	if jsonErr != nil {
		return ""
	}

	return string(jsonBytes)
}

// Load a JSON payload
func (a *AppSettings) Load(payload []byte) error {
	return json.Unmarshal(payload, a)
}
