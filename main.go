package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var version string

func main() {
	envErr := loadDotEnv()

	opts, err := loadOptions(os.Args)
	if errors.Is(err, errorHelp) {
		fmt.Println(usage)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "zwm: %v\n%s\n", err, usage)
		os.Exit(2)
	}
	initLogger(opts.LogLevel)
	if envErr != nil {
		slog.Debug("Could not load .env", "error", envErr)
	}

	if err := run(opts); err != nil {
		slog.Error("zwm failed", "error", err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	slog.Info("Initializing zwm", "version", version)

	wm, err := NewWM(opts)
	if err != nil {
		return err
	}
	defer wm.Close()

	if err := wm.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		wm.Close()
	}()

	if opts.ListenAddr != "" {
		supervisor := newSupervisor("zwm")
		supervisor.Add(NewStatusServer(wm, opts.ListenAddr))
		supervisor.ServeBackground(ctx)
	}

	slog.Info("zwm is running", "root", wm.screen.Root)
	if err := wm.Run(); err != nil {
		return err
	}

	slog.Info("Shutting down zwm")
	slog.Info("Goodbye from zwm!")
	return nil
}
