package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrDuplicateCommand means a name or alias is claimed twice.
var ErrDuplicateCommand = errors.New("command already registered")

// Registry maps command names and aliases to commands.
// Names are case-insensitive. Lookups read an immutable snapshot; Register
// copies it under a mutex, the same way platform.Registry does.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[map[string]Command]
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := make(map[string]Command)
	r.snap.Store(&empty)
	return r
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register adds a command under its name and aliases.
// Nothing is added if any of them is empty or already taken.
func (r *Registry) Register(c Command) error {
	keys := []string{normalizeName(c.Name())}
	for _, alias := range c.Aliases() {
		keys = append(keys, normalizeName(alias))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.snap.Load()
	next := make(map[string]Command, len(cur)+len(keys))
	for k, v := range cur {
		next[k] = v
	}
	for _, k := range keys {
		if k == "" || strings.HasPrefix(k, "-") {
			return fmt.Errorf("invalid command name %q for %s", k, c.Name())
		}
		if _, exists := next[k]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateCommand, k)
		}
		next[k] = c
	}
	r.snap.Store(&next)
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	cmd, ok := (*r.snap.Load())[normalizeName(name)]
	return cmd, ok
}

// All returns each command once, sorted by name.
func (r *Registry) All() []Command {
	seen := make(map[string]Command)
	for _, cmd := range *r.snap.Load() {
		seen[cmd.Name()] = cmd
	}
	out := make([]Command, 0, len(seen))
	for _, cmd := range seen {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// DefaultRegistry holds the commands registered from init().
var DefaultRegistry = NewRegistry()

// Register adds a command to DefaultRegistry and panics on a conflict.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
