package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/output"
	"taskbridge/internal/platform"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskbridge` (no args) and `taskbridge list`.
type ListCmd struct {
	all   bool
	limit int
}

func (c *ListCmd) Name() string        { return "list" }
func (c *ListCmd) Aliases() []string   { return []string{"ls"} }
func (c *ListCmd) Synopsis() string    { return "List tasks" }
func (c *ListCmd) Usage() string       { return "taskbridge list [--all] [--limit <n>]" }
func (c *ListCmd) NeedsStore() bool    { return true }
func (c *ListCmd) NeedsPlatform() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
	fs.IntVar(&c.limit, "limit", 0, "")
	fs.IntVar(&c.limit, "n", 0, "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.limit < 0 {
		fmt.Fprintf(errOut, "error: invalid limit: %d\n", c.limit)
		return exitcode.UserError
	}

	filter := platform.TaskFilter{IncludeCompleted: c.all, Limit: c.limit}
	n := 0
	for task, err := range env.Platform.ListTasks(ctx, filter) {
		if err != nil {
			// Tasks already printed stay printed.
			return ReportError(errOut, err)
		}
		n++
		output.FormatTask(out, n, task)
	}

	if n == 0 && !env.Config.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
