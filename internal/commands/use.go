package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/settings"
)

func init() {
	Register(&UseCmd{})
}

// UseCmd switches the active platform to one the user has configured.
type UseCmd struct{}

func (c *UseCmd) Name() string        { return "use" }
func (c *UseCmd) Aliases() []string   { return nil }
func (c *UseCmd) Synopsis() string    { return "Switch the active platform" }
func (c *UseCmd) Usage() string       { return "taskbridge use <platform>" }
func (c *UseCmd) NeedsStore() bool    { return true }
func (c *UseCmd) NeedsPlatform() bool { return false }

func (c *UseCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UseCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: platform required")
		return exitcode.UserError
	}
	reg, code, ok := lookupPlatform(env, args[0], errOut)
	if !ok {
		return code
	}

	if err := env.Store.SetActive(ctx, env.Config.User, reg.ID); err != nil {
		if errors.Is(err, settings.ErrNotStored) {
			fmt.Fprintf(errOut, "error: %s is not configured (run: taskbridge configure %s token=<token>)\n", reg.ID, reg.ID)
			return exitcode.AuthError
		}
		return ReportError(errOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
