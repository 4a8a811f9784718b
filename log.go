package main

import (
	"log/slog"
	"os"

	console "github.com/phsym/console-slog"
)

func initLogger(level slog.Level) {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	})))
}
