package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/output"
	"taskbridge/internal/platform"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	desc string
	due  string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskbridge add [--desc <text>] [--due <YYYY-MM-DD>] <title...>"
}
func (c *AddCmd) NeedsStore() bool    { return true }
func (c *AddCmd) NeedsPlatform() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.desc, "d", "", "")
	fs.StringVar(&c.due, "due", "", "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	task := platform.TaskRecord{Title: title, Description: c.desc}
	if c.due != "" {
		due, err := parseDue(c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		task.Due = &due
	}

	id, err := env.Platform.CreateTask(ctx, task)
	if err != nil {
		return ReportError(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, id)
	}
	return exitcode.Success
}

// parseDue parses a due date given on the command line as a UTC day.
func parseDue(s string) (time.Time, error) {
	due, err := time.Parse(output.DueLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date: %s (want YYYY-MM-DD)", s)
	}
	return due, nil
}
