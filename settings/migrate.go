package settings

import (
	"runtime"

	"github.com/mcuadros/go-version"
	"go.uber.org/zap"
)

// migrate upgrades settings written by an older release and reports whether
// anything changed.
func (a *AppSettings) migrate() bool {
	if a.Version != "" && version.CompareSimple(a.Version, WILDBITS_VERSION) >= 0 {
		return false
	}
	zap.S().Infof("migrating settings from version %q to %v", a.Version, WILDBITS_VERSION)

	// releases before 2.0 had no scan options
	if a.Version == "" || version.Compare(a.Version, "2.0.0", "<") {
		if a.ScanWorkers <= 0 {
			a.ScanWorkers = runtime.NumCPU()
		}
		if a.ScanExclude == nil {
			a.ScanExclude = defaultExcludes()
		}
		if a.UpdateExclude == nil {
			a.UpdateExclude = defaultExcludes()
		}
		a.ScanCache = true
	}
	a.Version = WILDBITS_VERSION
	return true
}
