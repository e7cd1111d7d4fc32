package settings

import (
	"context"
	"fmt"
	"sync"

	"taskbridge/internal/platform"
)

// Memory is an in-process Store. FileStore builds on it.
type Memory struct {
	mu    sync.RWMutex
	users map[string]*userRecord

	// persist, if set, runs under the write lock after every change.
	persist func(users map[string]*userRecord) error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]*userRecord)}
}

// ActivePlatform implements platform.Resolver.
func (m *Memory) ActivePlatform(ctx context.Context, userID string) (platform.ID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok || u.Active == "" {
		return "", false, nil
	}
	return platform.ID(u.Active), true, nil
}

// Settings implements platform.Resolver.
func (m *Memory) Settings(ctx context.Context, userID string, id platform.ID) (platform.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, false, nil
	}
	s, ok := u.Platforms[string(platform.NormalizeID(string(id)))]
	if !ok {
		return nil, false, nil
	}
	return platform.Settings(s).Clone(), true, nil
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, userID string, id platform.ID, s platform.Settings) error {
	return m.update(func() error {
		key := string(platform.NormalizeID(string(id)))
		if key == "" {
			return fmt.Errorf("platform identifier required")
		}
		u := m.user(userID)
		u.Platforms[key] = s.Clone()
		u.Active = key
		return nil
	})
}

// SetActive implements Store.
func (m *Memory) SetActive(ctx context.Context, userID string, id platform.ID) error {
	return m.update(func() error {
		key := string(platform.NormalizeID(string(id)))
		u, ok := m.users[userID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotStored, key)
		}
		if _, ok := u.Platforms[key]; !ok {
			return fmt.Errorf("%w: %s", ErrNotStored, key)
		}
		u.Active = key
		return nil
	})
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, userID string, id platform.ID) error {
	return m.update(func() error {
		key := string(platform.NormalizeID(string(id)))
		u, ok := m.users[userID]
		if !ok {
			return nil
		}
		delete(u.Platforms, key)
		if u.Active == key {
			u.Active = ""
		}
		if len(u.Platforms) == 0 && u.Active == "" {
			delete(m.users, userID)
		}
		return nil
	})
}

// Platforms implements Store.
func (m *Memory) Platforms(ctx context.Context, userID string) ([]platform.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return sortedIDs(u.Platforms), nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// update runs fn under the write lock, then persists.
func (m *Memory) update(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	if m.persist != nil {
		return m.persist(m.users)
	}
	return nil
}

// user returns the record for userID, creating it. Caller holds the lock.
func (m *Memory) user(userID string) *userRecord {
	u, ok := m.users[userID]
	if !ok {
		u = &userRecord{}
		m.users[userID] = u
	}
	if u.Platforms == nil {
		u.Platforms = make(map[string]map[string]string)
	}
	return u
}
