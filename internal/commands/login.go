package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd runs a platform's interactive credential flow and stores the
// result over the user's existing settings.
type LoginCmd struct{}

func (c *LoginCmd) Name() string        { return "login" }
func (c *LoginCmd) Aliases() []string   { return nil }
func (c *LoginCmd) Synopsis() string    { return "Authenticate with a platform" }
func (c *LoginCmd) Usage() string       { return "taskbridge login [<platform>]" }
func (c *LoginCmd) NeedsStore() bool    { return true }
func (c *LoginCmd) NeedsPlatform() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	var name string
	switch len(args) {
	case 0:
		active, ok, err := env.Store.ActivePlatform(ctx, env.Config.User)
		if err != nil {
			return ReportError(errOut, err)
		}
		if !ok {
			fmt.Fprintln(errOut, "error: platform required")
			return exitcode.UserError
		}
		name = string(active)
	case 1:
		name = args[0]
	default:
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	reg, code, ok := lookupPlatform(env, name, errOut)
	if !ok {
		return code
	}
	if reg.Authorize == nil {
		fmt.Fprintf(errOut, "error: %s has no login flow (run: taskbridge configure %s token=<token>)\n", reg.ID, reg.ID)
		return exitcode.UserError
	}

	current, _, err := env.Store.Settings(ctx, env.Config.User, reg.ID)
	if err != nil {
		return ReportError(errOut, err)
	}

	got, err := reg.Authorize(ctx, current.Clone(), errOut)
	if err != nil {
		return ReportError(errOut, err)
	}

	merged := current.Clone()
	for k, v := range got {
		merged[k] = v
	}
	if err := env.Store.Save(ctx, env.Config.User, reg.ID, merged); err != nil {
		return ReportError(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
