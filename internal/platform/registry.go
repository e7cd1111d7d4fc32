package platform

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
)

// AuthorizeFunc runs an interactive credential flow for a platform.
// It receives the user's current settings and returns the keys to store.
// Instructions for the user are written to prompt.
type AuthorizeFunc func(ctx context.Context, current Settings, prompt io.Writer) (Settings, error)

// Registration pairs an identifier with the constructor for its platform.
type Registration struct {
	ID          ID
	Description string
	New         Constructor

	// Required lists settings keys besides TokenKey that must be non-empty.
	Required []string

	// Authorize is optional.
	Authorize AuthorizeFunc
}

// RequiredKeys returns TokenKey followed by the registration's own keys.
func (r Registration) RequiredKeys() []string {
	keys := []string{TokenKey}
	for _, k := range r.Required {
		if k != TokenKey {
			keys = append(keys, k)
		}
	}
	return keys
}

// Registry maps identifiers to registrations.
// Lookups read an immutable snapshot and never block; Register copies the
// snapshot under a mutex and swaps it in.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[map[ID]Registration]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := make(map[ID]Registration)
	r.snap.Store(&empty)
	return r
}

// Register adds a platform.
// Returns an error if the identifier is already registered; the existing
// registration is kept unchanged.
func (r *Registry) Register(reg Registration) error {
	id := NormalizeID(string(reg.ID))
	if !validID(id) {
		return fmt.Errorf("invalid platform identifier: %q", reg.ID)
	}
	if reg.New == nil {
		return fmt.Errorf("platform %s: constructor required", id)
	}
	reg.ID = id

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.snap.Load()
	if _, exists := cur[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, id)
	}

	next := make(map[ID]Registration, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[id] = reg
	r.snap.Store(&next)
	return nil
}

// Lookup finds a registration by identifier.
func (r *Registry) Lookup(id ID) (Registration, error) {
	id = NormalizeID(string(id))
	reg, ok := (*r.snap.Load())[id]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, id)
	}
	return reg, nil
}

// List returns all registered identifiers sorted by name.
func (r *Registry) List() []ID {
	cur := *r.snap.Load()
	ids := make([]ID, 0, len(cur))
	for id := range cur {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// validID accepts lowercase letters, digits, '-' and '_', not leading with
// a separator.
func validID(id ID) bool {
	if id == "" {
		return false
	}
	for i, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case (c == '-' || c == '_') && i > 0:
		default:
			return false
		}
	}
	return true
}

// DefaultRegistry is the process-wide platform registry.
var DefaultRegistry = NewRegistry()

// Register adds a platform to the default registry.
// Backend packages call it from init(); a duplicate aborts startup.
func Register(reg Registration) {
	if err := DefaultRegistry.Register(reg); err != nil {
		panic(err)
	}
}
