package rules

import "fmt"

// BuilderFunc creates a Rule.
type BuilderFunc func() (Rule, error)

// Registry maps rule names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
	order    []string
}

// NewRegistry creates a new rule registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a rule builder. Registering a name twice replaces the
// builder but keeps the original position.
func (r *Registry) Register(name string, builder BuilderFunc) {
	if _, exists := r.builders[name]; !exists {
		r.order = append(r.order, name)
	}
	r.builders[name] = builder
}

// Build creates a rule by name.
// Returns error if the rule name is not registered.
func (r *Registry) Build(name string) (Rule, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown rule: %s", name)
	}
	return builder()
}

// BuildAll creates every registered rule in registration order.
func (r *Registry) BuildAll() ([]Rule, error) {
	built := make([]Rule, 0, len(r.order))
	for _, name := range r.order {
		rule, err := r.Build(name)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
		built = append(built, rule)
	}
	return built, nil
}
