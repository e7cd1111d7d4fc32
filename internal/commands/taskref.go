package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"taskbridge/internal/exitcode"
	"taskbridge/internal/platform"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	ID      platform.ExternalTaskID // set for an external id
	TaskNum int                     // 1-based position in list output, for #N
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// "#N" refers to the N-th open task in list order; anything else is taken
// as the platform's external id.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}

	ref := strings.TrimSpace(args[0])
	if strings.HasPrefix(ref, "#") {
		if !isAllDigits(ref[1:]) {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
		}
		num, err := strconv.Atoi(ref[1:])
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("task number out of range: %s", ref[1:])
		}
		return TaskRef{TaskNum: num}, nil
	}
	return TaskRef{ID: platform.ExternalTaskID(ref)}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// errTaskNumOutOfRange is returned by ResolveTaskRef for a #N past the end.
type errTaskNumOutOfRange int

func (e errTaskNumOutOfRange) Error() string {
	return fmt.Sprintf("task number out of range: %d", int(e))
}

// ResolveTaskRef returns the external id ref points at. A #N reference
// re-queries the platform's open tasks.
func ResolveTaskRef(ctx context.Context, p platform.Platform, ref TaskRef) (platform.ExternalTaskID, error) {
	if ref.ID != "" {
		return ref.ID, nil
	}

	n := 0
	for task, err := range p.ListTasks(ctx, platform.TaskFilter{}) {
		if err != nil {
			return "", err
		}
		n++
		if n == ref.TaskNum {
			return task.ExternalID, nil
		}
	}
	return "", errTaskNumOutOfRange(ref.TaskNum)
}

// resolveRefArgs parses and resolves a task reference, reporting errors.
// ok is false if the command should exit with code.
func resolveRefArgs(ctx context.Context, p platform.Platform, args []string, errOut io.Writer) (id platform.ExternalTaskID, code int, ok bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return "", exitcode.UserError, false
	}
	id, err = ResolveTaskRef(ctx, p, ref)
	if err != nil {
		var oor errTaskNumOutOfRange
		if errors.As(err, &oor) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return "", exitcode.UserError, false
		}
		return "", ReportError(errOut, err), false
	}
	return id, 0, true
}
