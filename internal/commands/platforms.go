package commands

import (
	"context"
	"flag"
	"io"
	"slices"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/output"
)

func init() {
	Register(&PlatformsCmd{})
}

// PlatformsCmd lists registered platforms and marks the user's.
type PlatformsCmd struct{}

func (c *PlatformsCmd) Name() string        { return "platforms" }
func (c *PlatformsCmd) Aliases() []string   { return nil }
func (c *PlatformsCmd) Synopsis() string    { return "List supported platforms" }
func (c *PlatformsCmd) Usage() string       { return "taskbridge platforms" }
func (c *PlatformsCmd) NeedsStore() bool    { return true }
func (c *PlatformsCmd) NeedsPlatform() bool { return false }

func (c *PlatformsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PlatformsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	configured, err := env.Store.Platforms(ctx, env.Config.User)
	if err != nil {
		return ReportError(errOut, err)
	}
	active, hasActive, err := env.Store.ActivePlatform(ctx, env.Config.User)
	if err != nil {
		return ReportError(errOut, err)
	}

	for _, id := range env.Platforms.List() {
		output.FormatPlatform(out, id, slices.Contains(configured, id), hasActive && id == active)
	}
	return exitcode.Success
}
