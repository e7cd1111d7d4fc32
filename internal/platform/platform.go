// Package platform defines the backend-agnostic contract for task platforms
// and the registry and factory that turn a user's stored settings into a
// ready-to-use platform instance.
// Command handlers never import a platform SDK directly.
package platform

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
)

// ID names a platform implementation (e.g. "googletasks").
type ID string

// NormalizeID trims and lowercases an identifier.
func NormalizeID(s string) ID {
	return ID(strings.ToLower(strings.TrimSpace(s)))
}

func (id ID) String() string { return string(id) }

// ExternalTaskID is the opaque identifier a remote platform assigns to a task.
type ExternalTaskID string

// Settings is the flat key/value configuration of one platform for one user.
type Settings map[string]string

// TokenKey is the settings key every platform requires.
const TokenKey = "token"

// Clone returns a copy that shares nothing with s.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// TaskRecord is a task as seen by the bot, independent of any platform schema.
type TaskRecord struct {
	// ExternalID is empty until the task has been created remotely.
	ExternalID  ExternalTaskID
	Title       string
	Description string
	Due         *time.Time
	Completed   bool
}

// ErrTitleRequired is returned when a task has no title.
var ErrTitleRequired = errors.New("title required")

// Validate checks the fields every platform needs before a remote call.
func (t TaskRecord) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Due         *time.Time
	// ClearDue removes the due date; it wins over Due.
	ClearDue  bool
	Completed *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Due == nil && !p.ClearDue && p.Completed == nil
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t TaskRecord) TaskRecord {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Due != nil {
		due := *p.Due
		t.Due = &due
	}
	if p.ClearDue {
		t.Due = nil
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	IncludeCompleted bool
	// DueBefore keeps only tasks due strictly before this instant.
	DueBefore *time.Time
	// Limit caps the number of records; zero or negative means no cap.
	Limit int
}

// Match reports whether t passes the filter (Limit is not considered).
func (f TaskFilter) Match(t TaskRecord) bool {
	if t.Completed && !f.IncludeCompleted {
		return false
	}
	if f.DueBefore != nil && (t.Due == nil || !t.Due.Before(*f.DueBefore)) {
		return false
	}
	return true
}

// Platform is the capability set every task platform must provide.
// Any type with these methods can be registered; nothing else is required.
type Platform interface {
	// CreateTask creates the task remotely and returns its external id.
	// The platform does not de-duplicate; callers that retry must.
	CreateTask(ctx context.Context, task TaskRecord) (ExternalTaskID, error)

	// UpdateTask applies patch to an existing task.
	// Returns an error matching ErrNotFound if the task no longer exists.
	UpdateTask(ctx context.Context, id ExternalTaskID, patch TaskPatch) error

	// DeleteTask deletes a task. Deleting a missing task succeeds.
	DeleteTask(ctx context.Context, id ExternalTaskID) error

	// ListTasks queries the platform and yields matching tasks lazily.
	// Each call re-queries; a sequence is not meant to be ranged twice.
	ListTasks(ctx context.Context, filter TaskFilter) iter.Seq2[TaskRecord, error]

	// ValidateCredentials checks the stored credentials against the platform.
	// Returns an error matching ErrAuth if they are rejected, or
	// ErrInvalidSettings if the credentials work but a setting does not
	// (for example a task list that does not exist).
	ValidateCredentials(ctx context.Context) error
}

// Constructor builds a platform from settings. It must not touch the network.
type Constructor func(settings Settings) (Platform, error)

// Instance is a platform constructed for a single user.
type Instance struct {
	Platform
	ID     ID
	UserID string
}
