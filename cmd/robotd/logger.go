package main

import (
	"log/slog"
	"os"

	"github.com/sdfgeoff/slambot/internal/logging"
)

func setupLogger(format, level string) *slog.Logger {
	l := logging.New(format, logging.ParseLevel(level), os.Stderr).With("app", "robotd")
	logging.Set(l)
	return l
}
