package personality

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages personality registration and lookup by command.
type Registry struct {
	personalities map[string]Personality
	order         []string
	mu            sync.RWMutex
}

// NewRegistry creates an empty personality registry.
func NewRegistry() *Registry {
	return &Registry{
		personalities: make(map[string]Personality),
	}
}

// Register adds a personality to the registry. Registering the same
// command twice replaces the earlier entry.
func (r *Registry) Register(p Personality) error {
	if p == nil {
		return fmt.Errorf("cannot register nil personality")
	}
	if p.Command() == "" {
		return fmt.Errorf("personality command cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.personalities[p.Command()]; !ok {
		r.order = append(r.order, p.Command())
	}
	r.personalities[p.Command()] = p
	return nil
}

// Get retrieves a personality by its command.
func (r *Registry) Get(command string) (Personality, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personalities[command]
	return p, ok
}

// List returns all registered personalities in registration order.
func (r *Registry) List() []Personality {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Personality, 0, len(r.order))
	for _, cmd := range r.order {
		out = append(out, r.personalities[cmd])
	}
	return out
}

// Commands returns all registered commands, sorted.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]string, 0, len(r.personalities))
	for cmd := range r.personalities {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	return commands
}

// Count returns the number of registered personalities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personalities)
}
