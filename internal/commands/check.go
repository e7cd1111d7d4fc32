package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
)

func init() {
	Register(&CheckCmd{})
}

// CheckCmd verifies the active platform's credentials with a live call.
type CheckCmd struct{}

func (c *CheckCmd) Name() string        { return "check" }
func (c *CheckCmd) Aliases() []string   { return []string{"validate"} }
func (c *CheckCmd) Synopsis() string    { return "Verify platform credentials" }
func (c *CheckCmd) Usage() string       { return "taskbridge check" }
func (c *CheckCmd) NeedsStore() bool    { return true }
func (c *CheckCmd) NeedsPlatform() bool { return true }

func (c *CheckCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CheckCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if err := env.Platform.ValidateCredentials(ctx); err != nil {
		return ReportError(errOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintf(out, "ok: %s\n", env.Platform.ID)
	}
	return exitcode.Success
}
