package internal

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfs-journey/config"
)

// InitLogging builds the process logger: a console writer on stdout and,
// when a file path is configured, a size-rotated log file.
func InitLogging(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return NewLogger(cfg, os.Stdout)
}

// NewLogger is InitLogging with the console output supplied by the caller.
func NewLogger(cfg config.LoggingConfig, console io.Writer) zerolog.Logger {
	var writers []io.Writer
	if cfg.Console && console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	}
	if cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays, // days
			Compress:   cfg.Compress,
		})
	}
	if len(writers) == 0 {
		return zerolog.Nop()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger().Level(level)
}
