// Package logging sets up the application's structured loggers.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkarvinen/dacsync/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

var humanReadableLogger *slog.Logger

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Extra level names beyond the slog built-ins.
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		levelLabel, exists := levelNames[level]
		if !exists {
			levelLabel = level.String()
		}
		a.Value = slog.StringValue(levelLabel)
	}
	return a
}

// Init initializes the logging system and sets the process default logger.
// Console output is human-readable text on stderr; file loggers created with
// NewFileLogger emit JSON.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	humanReadableHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})
	humanReadableLogger = slog.New(humanReadableHandler)

	slog.SetDefault(humanReadableLogger)
}

// NewFileLogger creates a service-specific JSON logger writing to filePath
// with lumberjack rotation. It returns the logger and a close function for
// shutdown. Rotation settings come from the main log configuration.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	// lumberjack doesn't create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	maxSizeMB := 10
	maxBackups := 3
	maxAge := 28 // days

	if settings := conf.GetSettings(); settings != nil {
		logConf := settings.Main.Log
		if logConf.MaxSize > 0 {
			maxSizeMB = logConf.MaxSize
		}
		if logConf.MaxBackups > 0 {
			maxBackups = logConf.MaxBackups
		}
		if logConf.MaxAge > 0 {
			maxAge = logConf.MaxAge
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   false,
	}

	handler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})

	logger := slog.New(handler).With("service", serviceName)
	return logger, logWriter.Close, nil
}
