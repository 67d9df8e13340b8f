package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

var (
	ErrLoggerInvalidLogLevel  = fmt.Errorf("invalid log level")
	ErrLoggerInvalidLogFormat = fmt.Errorf("invalid log format")
)

// NewLogger builds a logger writing to stdout.
func NewLogger(logLevel, logFormat string) (*slog.Logger, error) {
	return newLogger(os.Stdout, logLevel, logFormat)
}

// NewStderrLogger builds a logger writing to stderr, for commands whose
// stdout carries their output.
func NewStderrLogger(logLevel, logFormat string) (*slog.Logger, error) {
	return newLogger(os.Stderr, logLevel, logFormat)
}

func newLogger(w io.Writer, logLevel, logFormat string) (*slog.Logger, error) {
	slogLevel, err := getSlogLevel(logLevel)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(logFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel})), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})), nil
	case "tint":
		return slog.New(tint.NewHandler(w, &tint.Options{Level: slogLevel})), nil
	}

	return nil, errors.Join(ErrLoggerInvalidLogFormat, fmt.Errorf("log format: %s", logFormat))
}

func getSlogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToUpper(logLevel) {
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	}

	return slog.LevelInfo, errors.Join(ErrLoggerInvalidLogLevel, fmt.Errorf("log level: %s", logLevel))
}
