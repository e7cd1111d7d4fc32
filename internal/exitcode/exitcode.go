// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task reference).
	UserError = 1

	// AuthError indicates an auth/config error: no platform configured,
	// unsupported platform, missing settings, or rejected credentials.
	AuthError = 2

	// BackendError indicates a platform/API/network error.
	BackendError = 3
)
