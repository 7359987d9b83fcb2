package enhance

import "fmt"

// Registry maps engine names to constructed engines and picks one by name.
// Engines register at wiring time in main, not via init side effects.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

func (r *Registry) Register(name string, e Engine) {
	r.engines[name] = e
}

// Pick returns the named engine, or the sole registered engine when name is
// empty and exactly one exists.
func (r *Registry) Pick(name string) (Engine, error) {
	if name == "" && len(r.engines) == 1 {
		for _, e := range r.engines {
			return e, nil
		}
	}
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q", name)
	}
	return e, nil
}
