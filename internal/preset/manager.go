package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/JadenB/Luxamp-sub000/internal/visualizer"
)

var (
	// ErrReservedName is returned when saving over or deleting the default preset.
	ErrReservedName = errors.New("the default preset cannot be changed")
	ErrEmptyName    = errors.New("preset name is empty")
	ErrNotFound     = errors.New("preset not found")
)

// Store persists the encoded preset collection.
type Store interface {
	LoadPresets() ([]byte, error)
	SavePresets([]byte) error
}

// Target is the configuration a preset is captured from and applied to.
type Target interface {
	Settings() visualizer.Settings
	ApplySettings(visualizer.Settings)
}

// Manager keeps an ordered, uniquely named collection of presets.
type Manager struct {
	mu      sync.Mutex
	target  Target
	store   Store
	presets map[string]Preset
	order   []string
}

// NewManager loads the stored collection. The default preset is always
// present and first.
func NewManager(target Target, store Store) (*Manager, error) {
	m := &Manager{
		target:  target,
		store:   store,
		presets: make(map[string]Preset),
	}
	m.add(Default())

	b, err := store.LoadPresets()
	if err != nil {
		return nil, fmt.Errorf("loading presets: %w", err)
	}
	if len(b) == 0 {
		return m, nil
	}

	var loaded []Preset
	if err := json.Unmarshal(b, &loaded); err != nil {
		return nil, fmt.Errorf("loading presets: %w", err)
	}
	for _, p := range loaded {
		if p.Name == DefaultName || p.Name == "" {
			continue
		}
		m.add(p)
	}
	logging.For("preset").WithField("count", len(m.order)).Debug("presets loaded")
	return m, nil
}

// add inserts p, replacing an entry with the same name in place.
func (m *Manager) add(p Preset) {
	if _, ok := m.presets[p.Name]; !ok {
		m.order = append(m.order, p.Name)
	}
	m.presets[p.Name] = p
}

// Names returns preset names in save order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Get returns the preset called name.
func (m *Manager) Get(name string) (Preset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presets[name]
	return p, ok
}

// Apply copies the named preset into the target. Callers must only pass names
// returned by Names; an unknown name panics.
func (m *Manager) Apply(name string) {
	m.mu.Lock()
	p, ok := m.presets[name]
	m.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("preset: apply of unknown preset %q", name))
	}
	m.target.ApplySettings(p.Settings)
	logging.For("preset").WithField("name", name).Info("preset applied")
}

// SaveCurrentSettings captures the target's configuration under name. Saving
// over an existing name replaces it and keeps its position.
func (m *Manager) SaveCurrentSettings(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if name == DefaultName {
		return ErrReservedName
	}
	p := Preset{Name: name, Settings: m.target.Settings()}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(p)
	return m.persistLocked()
}

// Delete removes the named preset.
func (m *Manager) Delete(name string) error {
	if name == DefaultName {
		return ErrReservedName
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(m.presets, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return m.persistLocked()
}

func (m *Manager) persistLocked() error {
	list := make([]Preset, 0, len(m.order))
	for _, n := range m.order {
		list = append(list, m.presets[n])
	}
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding presets: %w", err)
	}
	if err := m.store.SavePresets(b); err != nil {
		return fmt.Errorf("saving presets: %w", err)
	}
	return nil
}
