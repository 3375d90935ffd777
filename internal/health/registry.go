package health

import (
	"fmt"
	"sort"
	"sync"

	"github.com/steveyegge/esxidiag/internal/config"
)

// Registry holds the rule table for a run. It is filled once, then only read;
// the lock makes concurrent lookups during evaluation safe.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// DefaultRegistry returns a registry holding every built-in rule.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range builtinRules() {
		if err := r.Register(rule); err != nil {
			panic(fmt.Sprintf("health: invalid built-in rule: %v", err))
		}
	}
	return r
}

// Register validates rule and adds it to the registry. Threshold keys must
// name a recognized threshold.
func (r *Registry) Register(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	for _, key := range rule.ThresholdKeys() {
		if _, ok := config.LookupSpec(key); !ok {
			return fmt.Errorf("rule %s: unknown threshold key %q", rule.ID, key)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID]; exists {
		return fmt.Errorf("rule %q already registered", rule.ID)
	}
	r.rules[rule.ID] = rule
	return nil
}

// Get returns a registered rule by id.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	return rule, exists
}

// IDs returns all registered rule ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rules returns all registered rules ordered by id.
func (r *Registry) Rules() []Rule {
	ids := r.IDs()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.rules[id])
	}
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Resolve returns the rules with the given ids, ordered by id. Unknown ids
// are an error.
func (r *Registry) Resolve(ids ...string) ([]Rule, error) {
	seen := make(map[string]bool, len(ids))
	var out []Rule
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		rule, ok := r.Get(id)
		if !ok {
			return nil, fmt.Errorf("rule %q not registered", id)
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
