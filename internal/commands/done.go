package commands

import (
	"context"
	"flag"
	"io"

	"taskbridge/internal/platform"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	undo bool
}

func (c *DoneCmd) Name() string        { return "done" }
func (c *DoneCmd) Aliases() []string   { return nil }
func (c *DoneCmd) Synopsis() string    { return "Mark a task completed" }
func (c *DoneCmd) Usage() string       { return "taskbridge done [--undo] <ref>" }
func (c *DoneCmd) NeedsStore() bool    { return true }
func (c *DoneCmd) NeedsPlatform() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.undo, "undo", false, "")
}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	completed := !c.undo
	return applyPatch(ctx, env, args, platform.TaskPatch{Completed: &completed}, out, errOut)
}
