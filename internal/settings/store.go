// Package settings stores per-user platform settings and the user's active
// platform selection. Every Store satisfies platform.Resolver.
package settings

import (
	"context"
	"errors"
	"sort"

	"taskbridge/internal/platform"
)

// ErrNotStored is returned when an operation needs settings that do not exist.
var ErrNotStored = errors.New("no settings stored")

// Store is a read/write settings backend.
//
// Save replaces the settings for one platform and makes it the user's
// active platform: the most recently configured platform wins until the
// user picks another with SetActive.
type Store interface {
	platform.Resolver

	// Save replaces the user's settings for a platform and marks it active.
	Save(ctx context.Context, userID string, id platform.ID, s platform.Settings) error

	// SetActive selects a platform the user has settings for.
	// Returns ErrNotStored otherwise.
	SetActive(ctx context.Context, userID string, id platform.ID) error

	// Delete removes the user's settings for a platform, clearing the
	// selection if it was active. Deleting nothing is not an error.
	Delete(ctx context.Context, userID string, id platform.ID) error

	// Platforms lists the platforms the user has settings for, sorted.
	Platforms(ctx context.Context, userID string) ([]platform.ID, error)

	Close() error
}

// userRecord is the stored shape of one user's configuration.
type userRecord struct {
	Active    string                       `yaml:"active,omitempty"`
	Platforms map[string]map[string]string `yaml:"platforms,omitempty"`
}

func sortedIDs(m map[string]map[string]string) []platform.ID {
	ids := make([]platform.ID, 0, len(m))
	for k := range m {
		ids = append(ids, platform.ID(k))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
