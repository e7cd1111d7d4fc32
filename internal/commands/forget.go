package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/platform"
)

func init() {
	Register(&ForgetCmd{})
}

// ForgetCmd deletes stored settings for a platform. Without an argument it
// forgets the active platform.
type ForgetCmd struct{}

func (c *ForgetCmd) Name() string        { return "forget" }
func (c *ForgetCmd) Aliases() []string   { return []string{"logout"} }
func (c *ForgetCmd) Synopsis() string    { return "Remove stored settings for a platform" }
func (c *ForgetCmd) Usage() string       { return "taskbridge forget [<platform>]" }
func (c *ForgetCmd) NeedsStore() bool    { return true }
func (c *ForgetCmd) NeedsPlatform() bool { return false }

func (c *ForgetCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ForgetCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	var id platform.ID
	switch len(args) {
	case 0:
		active, ok, err := env.Store.ActivePlatform(ctx, env.Config.User)
		if err != nil {
			return ReportError(errOut, err)
		}
		if !ok {
			if !env.Config.Quiet {
				fmt.Fprintln(out, "ok")
			}
			return exitcode.Success
		}
		id = active
	case 1:
		// Unregistered platforms can still be forgotten.
		id = platform.NormalizeID(args[0])
	default:
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	if err := env.Store.Delete(ctx, env.Config.User, id); err != nil {
		return ReportError(errOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
