// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"taskbridge/internal/platform"
)

// FakePlatform is an in-memory implementation of platform.Platform for testing.
type FakePlatform struct {
	mu    sync.RWMutex
	tasks []platform.TaskRecord

	// Settings holds the settings the last constructor call received.
	Settings platform.Settings

	// Constructed counts constructor calls.
	Constructed int

	// Error injection for testing
	NewErr        error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error
	ListTasksErr  error
	ValidateErr   error
	ListErrAfter  int // with ListTasksErr, fail after yielding this many tasks

	// Block makes every operation wait until its context is done.
	Block bool
}

// NewFakePlatform creates an empty FakePlatform.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{}
}

// Constructor returns a platform.Constructor that records settings and
// returns f.
func (f *FakePlatform) Constructor() platform.Constructor {
	return func(s platform.Settings) (platform.Platform, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.Constructed++
		f.Settings = s
		if f.NewErr != nil {
			return nil, f.NewErr
		}
		return f, nil
	}
}

// Registration returns a registration for f under id.
func (f *FakePlatform) Registration(id string, required ...string) platform.Registration {
	return platform.Registration{
		ID:       platform.ID(id),
		New:      f.Constructor(),
		Required: required,
	}
}

// AddTask adds an open task with a fixed id.
func (f *FakePlatform) AddTask(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, platform.TaskRecord{
		ExternalID: platform.ExternalTaskID(id),
		Title:      title,
	})
}

// Task returns a stored task by id.
func (f *FakePlatform) Task(id platform.ExternalTaskID) (platform.TaskRecord, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ExternalID == id {
			return t, true
		}
	}
	return platform.TaskRecord{}, false
}

// Tasks returns a copy of all stored tasks in insertion order.
func (f *FakePlatform) Tasks() []platform.TaskRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]platform.TaskRecord, len(f.tasks))
	copy(out, f.tasks)
	return out
}

func (f *FakePlatform) wait(ctx context.Context) error {
	if !f.Block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

// CreateTask implements platform.Platform.
func (f *FakePlatform) CreateTask(ctx context.Context, task platform.TaskRecord) (platform.ExternalTaskID, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.CreateTaskErr != nil {
		return "", f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	task.ExternalID = platform.ExternalTaskID(uuid.NewString())
	f.tasks = append(f.tasks, task)
	return task.ExternalID, nil
}

// UpdateTask implements platform.Platform.
func (f *FakePlatform) UpdateTask(ctx context.Context, id platform.ExternalTaskID, patch platform.TaskPatch) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.UpdateTaskErr != nil {
		return f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ExternalID == id {
			f.tasks[i] = patch.Apply(t)
			return nil
		}
	}
	return platform.ErrNotFound
}

// DeleteTask implements platform.Platform.
func (f *FakePlatform) DeleteTask(ctx context.Context, id platform.ExternalTaskID) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ExternalID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListTasks implements platform.Platform.
func (f *FakePlatform) ListTasks(ctx context.Context, filter platform.TaskFilter) iter.Seq2[platform.TaskRecord, error] {
	return func(yield func(platform.TaskRecord, error) bool) {
		if err := f.wait(ctx); err != nil {
			yield(platform.TaskRecord{}, err)
			return
		}
		if f.ListTasksErr != nil && f.ListErrAfter == 0 {
			yield(platform.TaskRecord{}, f.ListTasksErr)
			return
		}

		n := 0
		for _, t := range f.Tasks() {
			if !filter.Match(t) {
				continue
			}
			if f.ListTasksErr != nil && n == f.ListErrAfter {
				yield(platform.TaskRecord{}, f.ListTasksErr)
				return
			}
			if !yield(t, nil) {
				return
			}
			n++
		}
	}
}

// ValidateCredentials implements platform.Platform.
func (f *FakePlatform) ValidateCredentials(ctx context.Context) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	return f.ValidateErr
}
