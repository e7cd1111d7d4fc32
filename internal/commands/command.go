// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	log "github.com/sirupsen/logrus"

	"taskbridge/internal/config"
	"taskbridge/internal/platform"
	"taskbridge/internal/settings"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsStore returns true if the command reads or writes user settings.
	NeedsStore() bool

	// NeedsPlatform returns true if the command acts on the user's
	// configured platform. Implies NeedsStore.
	NeedsPlatform() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is what a command runs against.
type Env struct {
	// Config is always provided.
	Config *config.Config

	// Logger is always provided.
	Logger *log.Logger

	// Platforms is the platform registry; always provided.
	Platforms *platform.Registry

	// Factory resolves platforms over Platforms; always provided.
	Factory *platform.Factory

	// Store is nil if NeedsStore() returns false.
	Store settings.Store

	// Platform is nil if NeedsPlatform() returns false.
	Platform *platform.Instance
}
