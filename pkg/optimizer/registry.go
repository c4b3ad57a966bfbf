package optimizer

import "sort"

// Registry stores registered patterns keyed by id, category, and
// minimum level. It is an explicitly constructed store, not ambient
// state, so independent compilations can carry independently
// configured registries. Mutate it only between optimization runs.
type Registry struct {
	byID  map[string]Pattern
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Pattern)}
}

// Register adds a pattern. Registering an id twice overwrites the
// earlier registration; the last one wins. An invalid pattern is a
// programming error and is rejected.
func (r *Registry) Register(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := r.byID[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.byID[p.ID] = p
	return nil
}

// Unregister removes a pattern by id. Removing an unknown id is a
// no-op.
func (r *Registry) Unregister(id string) {
	if _, exists := r.byID[id]; !exists {
		return
	}
	delete(r.byID, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Clear removes every pattern.
func (r *Registry) Clear() {
	r.byID = make(map[string]Pattern)
	r.order = nil
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int { return len(r.byID) }

// Get returns a pattern by id.
func (r *Registry) Get(id string) (Pattern, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns every pattern in registration order.
func (r *Registry) All() []Pattern {
	out := make([]Pattern, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ByCategory returns the patterns in a category, in registration
// order. An unknown category yields an empty result.
func (r *Registry) ByCategory(cat Category) []Pattern {
	var out []Pattern
	for _, id := range r.order {
		if p := r.byID[id]; p.Category == cat {
			out = append(out, p)
		}
	}
	return out
}

// ByLevel returns the patterns admissible at the given level. The
// result for a level is always a superset of the result for any lower
// level; an unknown level yields an empty result.
func (r *Registry) ByLevel(level Level) []Pattern {
	var out []Pattern
	for _, id := range r.order {
		if p := r.byID[id]; level.Admits(p.MinLevel) {
			out = append(out, p)
		}
	}
	return out
}

// sortForRun orders patterns for one pass: higher priority first, ties
// broken by the weighted impact estimate (better first), then by id
// for determinism. weight in [0,1] slides the estimate between pure
// speed (0) and pure size (1).
func sortForRun(patterns []Pattern, weight float64) {
	score := func(p Pattern) float64 {
		return float64(p.Estimated.Cycles)*(1-weight) + float64(p.Estimated.Size)*weight
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Priority != patterns[j].Priority {
			return patterns[i].Priority > patterns[j].Priority
		}
		si, sj := score(patterns[i]), score(patterns[j])
		if si != sj {
			return si < sj
		}
		return patterns[i].ID < patterns[j].ID
	})
}
