package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskbridge/internal/api"
	"taskbridge/internal/exitcode"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	listen string
}

func (c *ServeCmd) Name() string        { return "serve" }
func (c *ServeCmd) Aliases() []string   { return nil }
func (c *ServeCmd) Synopsis() string    { return "Serve the HTTP API" }
func (c *ServeCmd) Usage() string       { return "taskbridge serve [--listen <addr>]" }
func (c *ServeCmd) NeedsStore() bool    { return true }
func (c *ServeCmd) NeedsPlatform() bool { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listen, "listen", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	addr := c.listen
	if addr == "" {
		addr = env.Config.Listen
	}
	if !env.Config.Quiet {
		fmt.Fprintf(out, "listening on %s\n", addr)
	}

	srv := api.NewServer(env.Store, env.Factory, env.Logger)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
