package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel overrides the log level when --verbose is not given.
const EnvLogLevel = "GAMERANK_LOG_LEVEL"

type globalFlags struct {
	verbose bool
	logJSON bool
}

// logger builds the process logger and installs it as the slog default.
func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: g.level()}
	var handler slog.Handler
	if g.logJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func (g *globalFlags) level() slog.Leveler {
	if g.verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(os.Getenv(EnvLogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
