package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string        { return "help" }
func (c *HelpCmd) Aliases() []string   { return nil }
func (c *HelpCmd) Synopsis() string    { return "Print usage" }
func (c *HelpCmd) Usage() string       { return "taskbridge help" }
func (c *HelpCmd) NeedsStore() bool    { return false }
func (c *HelpCmd) NeedsPlatform() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskbridge                                          List open tasks
  taskbridge list [common flags] [--all] [--limit <n>]
  taskbridge add [common flags] [--desc <text>] [--due <YYYY-MM-DD>] <title...>
  taskbridge update [common flags] [--title <text>] [--desc <text>] [--due <YYYY-MM-DD>] <ref>
  taskbridge done [common flags] [--undo] <ref>
  taskbridge rm [common flags] <ref>
  taskbridge platforms [common flags]
  taskbridge configure [common flags] [--replace] <platform> <key=value...>
  taskbridge use [common flags] <platform>
  taskbridge forget [common flags] [<platform>]
  taskbridge login [common flags] [<platform>]
  taskbridge check [common flags]
  taskbridge serve [common flags] [--listen <addr>]
  taskbridge help
  taskbridge version

Task references:
  #N               The N-th open task as shown by list
  <id>             The platform's task id

Common flags:
  --config <dir>   Override config directory
  --user <id>      Act for another user
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
