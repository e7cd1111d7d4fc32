package commands

import (
	"errors"
	"fmt"
	"io"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/platform"
)

// ReportError prints err the way users should see it and returns the exit
// code for it. Resolution failures point at the command that fixes them.
func ReportError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, platform.ErrNotConfigured):
		fmt.Fprintln(errOut, "error: no platform configured (run: taskbridge configure <platform> token=<token>)")
		return exitcode.AuthError
	case errors.Is(err, platform.ErrUnknownPlatform):
		fmt.Fprintf(errOut, "error: platform no longer supported: %v (run: taskbridge platforms)\n", err)
		return exitcode.AuthError
	case errors.Is(err, platform.ErrInvalidSettings):
		fmt.Fprintf(errOut, "error: %v (run: taskbridge configure)\n", err)
		return exitcode.AuthError
	case errors.Is(err, platform.ErrAuth):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, platform.ErrNotFound):
		fmt.Fprintln(errOut, "error: task not found")
		return exitcode.UserError
	case errors.Is(err, platform.ErrTitleRequired):
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	case platform.IsTimeout(err):
		fmt.Fprintln(errOut, "error: request timed out")
		return exitcode.BackendError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
