package risk

import "sync"

// Set is a set of grades.
type Set map[Grade]bool

// NewSet builds a set from grades.
func NewSet(grades ...Grade) Set {
	s := make(Set, len(grades))
	for _, g := range grades {
		s[g] = true
	}
	return s
}

// Has reports membership.
func (s Set) Has(g Grade) bool { return s[g] }

// Sorted returns the members in display order.
func (s Set) Sorted() []Grade {
	out := make([]Grade, 0, len(s))
	for _, g := range Grades {
		if s[g] {
			out = append(out, g)
		}
	}
	return out
}

// Registry tracks the enabled flag of each grade. Every grade starts enabled
// and stays as set until toggled; the key set never grows.
type Registry struct {
	mu      sync.RWMutex
	enabled map[Grade]bool
}

// NewRegistry returns a registry with all grades enabled.
func NewRegistry() *Registry {
	r := &Registry{enabled: make(map[Grade]bool, len(Grades))}
	for _, g := range Grades {
		r.enabled[g] = true
	}
	return r
}

// SetEnabled toggles one grade. Unknown keys return ErrInvalidGrade.
func (r *Registry) SetEnabled(key string, on bool) error {
	g, err := Lookup(key)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.enabled[g] = on
	r.mu.Unlock()
	return nil
}

// IsEnabled reports the flag for a grade.
func (r *Registry) IsEnabled(g Grade) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[g]
}

// Enabled returns a copy of the currently enabled grades.
func (r *Registry) Enabled() Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := make(Set, len(r.enabled))
	for g, on := range r.enabled {
		if on {
			s[g] = true
		}
	}
	return s
}

// State describes one grade for display.
type State struct {
	Grade   Grade `json:"grade" yaml:"grade"`
	Info    `yaml:",inline"`
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// States returns every grade with its metadata and flag, in display order.
func (r *Registry) States() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]State, 0, len(Grades))
	for _, g := range Grades {
		out = append(out, State{Grade: g, Info: g.Info(), Enabled: r.enabled[g]})
	}
	return out
}
