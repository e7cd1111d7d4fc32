// Package main is the entry point for the taskbridge CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"taskbridge/internal/cli"
	"taskbridge/internal/commands"
	"taskbridge/internal/platform"
	"taskbridge/internal/settings"

	// Platform packages register themselves via init().
	_ "taskbridge/internal/backend/googletasks"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, platform.DefaultRegistry, settings.Open)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
