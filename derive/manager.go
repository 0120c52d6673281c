package derive

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
)

// Manager holds the compiled export profiles. Replacing a profile compiles the
// new definition first and swaps it in only on success, so readers never see
// a half-built profile.
type Manager struct {
	env      *cel.Env
	profiles map[string]*Profile
	mu       sync.RWMutex
}

// NewManager creates an empty manager
func NewManager() (*Manager, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}
	return &Manager{
		env:      env,
		profiles: make(map[string]*Profile),
	}, nil
}

// LoadAll compiles every definition. Nothing is installed unless all of them
// compile.
func (m *Manager) LoadAll(defs map[string][]Field) error {
	compiled := make(map[string]*Profile, len(defs))
	for name, fields := range defs {
		p, err := Compile(m.env, name, fields)
		if err != nil {
			return fmt.Errorf("failed to load profile %s: %w", name, err)
		}
		compiled[name] = p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, p := range compiled {
		m.profiles[name] = p
	}
	return nil
}

// Put compiles fields and installs them under name, replacing any existing
// profile.
func (m *Manager) Put(name string, fields []Field) (*Profile, error) {
	p, err := Compile(m.env, name, fields)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.profiles[name] = p
	m.mu.Unlock()

	return p, nil
}

// Get returns the profile with the given name
func (m *Manager) Get(name string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %s not found", name)
	}
	return p, nil
}

// List returns the profile names in ascending order
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.profiles))
	for name := range m.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes a profile
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[name]; !ok {
		return fmt.Errorf("profile %s not found", name)
	}
	delete(m.profiles, name)
	return nil
}
