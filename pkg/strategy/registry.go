package strategy

import "sort"

// Registry maps strategy names to implementations. The set is closed at
// construction; lookups for unknown names fall back to the default strategy
// so a bad strategy name can never fail a decision.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry builds the registry with the three built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	for _, s := range []Strategy{DefaultStrategy{}, ConservativeStrategy{}, AggressiveStrategy{}} {
		r.strategies[s.Name()] = s
	}
	r.fallback = r.strategies["default"]
	return r
}

// Get resolves a strategy by name, falling back to "default".
func (r *Registry) Get(name string) Strategy {
	if s, ok := r.strategies[name]; ok {
		return s
	}
	return r.fallback
}

// Default returns the fallback strategy.
func (r *Registry) Default() Strategy { return r.fallback }

// IsValid reports whether name is a registered strategy.
func (r *Registry) IsValid(name string) bool {
	_, ok := r.strategies[name]
	return ok
}

// Available lists registered strategy names with their descriptions.
func (r *Registry) Available() map[string]string {
	out := make(map[string]string, len(r.strategies))
	for name, s := range r.strategies {
		out[name] = s.Description()
	}
	return out
}

// Names returns the registered strategy names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
