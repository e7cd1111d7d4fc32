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
	Register(&UpdateCmd{})
}

// UpdateCmd implements the update command.
// Only the fields given as flags change; --due "" clears the due date.
type UpdateCmd struct {
	title optionalString
	desc  optionalString
	due   optionalString
}

func (c *UpdateCmd) Name() string      { return "update" }
func (c *UpdateCmd) Aliases() []string { return []string{"edit"} }
func (c *UpdateCmd) Synopsis() string  { return "Change a task" }
func (c *UpdateCmd) Usage() string {
	return "taskbridge update [--title <text>] [--desc <text>] [--due <YYYY-MM-DD>] <ref>"
}
func (c *UpdateCmd) NeedsStore() bool    { return true }
func (c *UpdateCmd) NeedsPlatform() bool { return true }

// RegisterFlags resets the optional values, which outlive a single run.
func (c *UpdateCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.desc, c.due = optionalString{}, optionalString{}, optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.desc, "d", "")
	fs.Var(&c.due, "due", "")
}

func (c *UpdateCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	var patch platform.TaskPatch
	if c.title.set {
		patch.Title = &c.title.value
	}
	if c.desc.set {
		patch.Description = &c.desc.value
	}
	if c.due.set {
		if c.due.value == "" {
			patch.ClearDue = true
		} else {
			due, err := parseDue(c.due.value)
			if err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
				return exitcode.UserError
			}
			patch.Due = &due
		}
	}
	if patch.IsEmpty() {
		fmt.Fprintln(errOut, "error: nothing to update")
		return exitcode.UserError
	}

	return applyPatch(ctx, env, args, patch, out, errOut)
}

// applyPatch resolves the task reference in args and updates it.
func applyPatch(ctx context.Context, env *Env, args []string, patch platform.TaskPatch, out, errOut io.Writer) int {
	id, code, ok := resolveRefArgs(ctx, env.Platform, args, errOut)
	if !ok {
		return code
	}
	if err := env.Platform.UpdateTask(ctx, id, patch); err != nil {
		return ReportError(errOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// optionalString is a flag.Value that remembers whether it was set.
type optionalString struct {
	value string
	set   bool
}

func (s *optionalString) String() string { return s.value }

func (s *optionalString) Set(v string) error {
	s.value = v
	s.set = true
	return nil
}
