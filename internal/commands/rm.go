package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command. Removing a task that is already gone
// succeeds.
type RmCmd struct{}

func (c *RmCmd) Name() string        { return "rm" }
func (c *RmCmd) Aliases() []string   { return []string{"delete"} }
func (c *RmCmd) Synopsis() string    { return "Delete a task" }
func (c *RmCmd) Usage() string       { return "taskbridge rm <ref>" }
func (c *RmCmd) NeedsStore() bool    { return true }
func (c *RmCmd) NeedsPlatform() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	id, code, ok := resolveRefArgs(ctx, env.Platform, args, errOut)
	if !ok {
		return code
	}
	if err := env.Platform.DeleteTask(ctx, id); err != nil {
		return ReportError(errOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
