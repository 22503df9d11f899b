package rule

import (
	"fmt"
	"sync"
)

// Registry holds the tribute rules built from the rule table, in table order.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Rule
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Rule)}
}

// Register adds a rule. Rule ids are unique across the table.
func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := rule.ID()
	if _, dup := r.byID[id]; dup {
		return fmt.Errorf("tribute rule %q already registered", id)
	}
	r.byID[id] = rule
	r.order = append(r.order, id)
	return nil
}

// Get returns the rule with the given id, or nil.
func (r *Registry) Get(id string) Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Tributes resolves a month's tribute ids to enabled rules, keeping the
// month's order. Ids without an enabled rule are left out.
func (r *Registry) Tributes(ids []string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(ids))
	for _, id := range ids {
		if rule, ok := r.byID[id]; ok && rule.Config().Enabled {
			out = append(out, rule)
		}
	}
	return out
}

// IDs lists registered rule ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
