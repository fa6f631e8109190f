package common

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger, falling back to a bare console
// writer if SetupLogger has not run yet.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(writerConfig(nil, models.LogWriterTypeConsole, ""))
		globalLogger.Warn().Msg("using fallback logger - SetupLogger was not called during startup")
	}
	return globalLogger
}

// SetupLogger configures the global logger from config and returns it.
func SetupLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasStdout := false, false
	for _, output := range config.Logging.Output {
		switch output {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasStdout = true
		}
	}

	if hasFile {
		execPath, err := os.Executable()
		if err == nil {
			logsDir := filepath.Join(filepath.Dir(execPath), "logs")
			if err := os.MkdirAll(logsDir, 0755); err == nil {
				logFile := filepath.Join(logsDir, "webpscan.log")
				logger = logger.WithFileWriter(writerConfig(config, models.LogWriterTypeFile, logFile))
			}
		}
	}

	if hasStdout || !hasFile {
		logger = logger.WithConsoleWriter(writerConfig(config, models.LogWriterTypeConsole, ""))
	}

	// memory writer keeps recent entries in process; no HTTP route serves them
	logger = logger.WithMemoryWriter(writerConfig(config, models.LogWriterTypeMemory, ""))
	logger = logger.WithLevelFromString(config.Logging.Level)

	loggerMutex.Lock()
	globalLogger = logger
	loggerMutex.Unlock()

	return logger
}

func writerConfig(config *Config, writerType models.LogWriterType, filename string) models.WriterConfiguration {
	timeFormat := "15:04:05.000"
	if config != nil && config.Logging.TimeFormat != "" {
		timeFormat = config.Logging.TimeFormat
	}
	return models.WriterConfiguration{
		Type:       writerType,
		FileName:   filename,
		TimeFormat: timeFormat,
		MaxSize:    100 * 1024 * 1024,
		MaxBackups: 3,
	}
}
