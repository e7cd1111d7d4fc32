// Package cli parses the command line and runs commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"taskbridge/internal/commands"
	"taskbridge/internal/config"
	"taskbridge/internal/exitcode"
	"taskbridge/internal/platform"
	"taskbridge/internal/settings"
)

// StoreOpener opens the settings store for cfg.
// Used to inject the backend during dispatch.
type StoreOpener func(ctx context.Context, cfg *config.Config, logger *log.Logger) (settings.Store, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry  *commands.Registry
	platforms *platform.Registry
	open      StoreOpener
}

// NewDispatcher creates a new dispatcher. A nil platforms registry uses
// platform.DefaultRegistry; a nil opener uses settings.Open.
func NewDispatcher(registry *commands.Registry, platforms *platform.Registry, open StoreOpener) *Dispatcher {
	if platforms == nil {
		platforms = platform.DefaultRegistry
	}
	if open == nil {
		open = settings.Open
	}
	return &Dispatcher{
		registry:  registry,
		platforms: platforms,
		open:      open,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var (
		configDir string
		userID    string
		quiet     bool
		debug     bool
	)
	fs.StringVar(&configDir, "config", "", "")
	fs.StringVar(&userID, "user", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = cfg.Debug || debug
	if userID != "" {
		cfg.User = userID
	}

	logger := newLogger(errOut, cfg.Debug)
	factory := platform.NewFactory(d.platforms, logger)
	factory.Timeout = cfg.Timeout

	env := &commands.Env{
		Config:    cfg,
		Logger:    logger,
		Platforms: d.platforms,
		Factory:   factory,
	}

	if cmd.NeedsStore() || cmd.NeedsPlatform() {
		store, err := d.open(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(errOut, "error: settings store: %v\n", err)
			return exitcode.BackendError
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("settings.close_failed")
			}
		}()
		env.Store = store
	}

	if cmd.NeedsPlatform() {
		inst, err := factory.ResolveForUser(ctx, cfg.User, env.Store)
		if err != nil {
			return commands.ReportError(errOut, err)
		}
		env.Platform = inst
	}

	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()
	switch {
	case strings.HasPrefix(errStr, "flag needs an argument:"):
		return "flag needs an argument: " + strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
	case strings.HasPrefix(errStr, "flag provided but not defined:"):
		return "unknown flag: " + strings.TrimSpace(strings.TrimPrefix(errStr, "flag provided but not defined:"))
	default:
		return errStr
	}
}

// newLogger returns a logger writing to w. Only errors are shown unless
// debug is set.
func newLogger(w io.Writer, debug bool) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(&log.TextFormatter{DisableTimestamp: !debug})
	logger.SetLevel(log.ErrorLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
