package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/platform"
)

func init() {
	Register(&ConfigureCmd{})
}

// ConfigureCmd stores settings for a platform and makes it active.
// Given keys are merged over what is stored; "key=" removes a key.
type ConfigureCmd struct {
	replace bool
}

func (c *ConfigureCmd) Name() string      { return "configure" }
func (c *ConfigureCmd) Aliases() []string { return []string{"config"} }
func (c *ConfigureCmd) Synopsis() string  { return "Store settings for a platform" }
func (c *ConfigureCmd) Usage() string {
	return "taskbridge configure [--replace] <platform> <key=value...>"
}
func (c *ConfigureCmd) NeedsStore() bool    { return true }
func (c *ConfigureCmd) NeedsPlatform() bool { return false }

func (c *ConfigureCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.replace, "replace", false, "")
}

func (c *ConfigureCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: platform required")
		return exitcode.UserError
	}
	reg, code, ok := lookupPlatform(env, args[0], errOut)
	if !ok {
		return code
	}

	updates, err := parseAssignments(args[1:])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	merged := platform.Settings{}
	if !c.replace {
		current, _, err := env.Store.Settings(ctx, env.Config.User, reg.ID)
		if err != nil {
			return ReportError(errOut, err)
		}
		merged = current.Clone()
	}
	for k, v := range updates {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	if err := env.Store.Save(ctx, env.Config.User, reg.ID, merged); err != nil {
		return ReportError(errOut, err)
	}

	if missing := platform.MissingKeys(reg, merged); len(missing) > 0 {
		fmt.Fprintf(errOut, "warning: %s still needs %s\n", reg.ID, strings.Join(missing, ", "))
	}
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// parseAssignments parses key=value arguments. Keys are case-sensitive.
func parseAssignments(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one key=value required")
	}
	kv := make(map[string]string, len(args))
	for _, a := range args {
		k, v, found := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			return nil, fmt.Errorf("invalid setting: %s (want key=value)", a)
		}
		kv[k] = v
	}
	return kv, nil
}

// lookupPlatform finds a registration by name, reporting unknown ones.
func lookupPlatform(env *Env, name string, errOut io.Writer) (platform.Registration, int, bool) {
	reg, err := env.Platforms.Lookup(platform.NormalizeID(name))
	if err != nil {
		fmt.Fprintf(errOut, "error: unknown platform: %s (run: taskbridge platforms)\n", name)
		return platform.Registration{}, exitcode.UserError, false
	}
	return reg, exitcode.Success, true
}
