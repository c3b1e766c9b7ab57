package logger

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
)

const (
	LOGGER_FILE = "wildbits.log"
)

var logger *zap.Logger

// Options of the process logger
type Options struct {
	Folder string
	Debug  bool
	// Console mirrors the log to stderr
	Console bool
}

func newLogger(opts Options) {
	config := zap.NewDevelopmentConfig()

	// If not debug keep at info level
	if !opts.Debug {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logPath := filepath.Join(opts.Folder, LOGGER_FILE)
	// delete old file
	os.Remove(logPath)

	if runtime.GOOS == "windows" {
		zap.RegisterSink("winfile", func(u *url.URL) (zap.Sink, error) {
			// Remove leading slash left by url.Parse()
			return os.OpenFile(u.Path[1:], os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		})
		logPath = "winfile:///" + logPath
	}

	config.OutputPaths = []string{logPath}
	config.ErrorOutputPaths = []string{logPath}
	if opts.Console {
		config.OutputPaths = append(config.OutputPaths, "stderr")
	}

	var loggerErr error
	logger, loggerErr = config.Build()
	if loggerErr != nil {
		fmt.Printf("failed to create logger - %v", loggerErr)
		panic(1)
	}
	zap.ReplaceGlobals(logger)
}

// Get sugared logger, building the process logger on first use
func GetSugar(opts Options) *zap.SugaredLogger {
	if logger == nil {
		newLogger(opts)
	}

	return logger.Sugar()
}

// Sync on defer (call it with defer)
func Defer() {
	if logger != nil {
		logger.Sync()
	}
}
