// Package config holds the persisted process-wide settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxBrightness = 1.0
	DefaultRefreshRate   = 60
)

// Key names a single setting in change events.
type Key int

const (
	KeyDevicePath Key = iota
	KeyDelay
	KeyMaxBrightness
	KeyRefreshRate
	KeyPresets
)

func (k Key) String() string {
	switch k {
	case KeyDevicePath:
		return "device_path"
	case KeyDelay:
		return "delay_ms"
	case KeyMaxBrightness:
		return "max_brightness"
	case KeyRefreshRate:
		return "refresh_rate"
	case KeyPresets:
		return "presets"
	}
	return "unknown"
}

// Values is the on-disk document.
type Values struct {
	DevicePath    string  `yaml:"device_path,omitempty"`
	DelayMS       int     `yaml:"delay_ms"`
	MaxBrightness float64 `yaml:"max_brightness"`
	RefreshRate   int     `yaml:"refresh_rate"`
	// Presets is the JSON encoded preset collection.
	Presets string `yaml:"presets,omitempty"`
}

// Event reports one changed setting along with the full new state.
type Event struct {
	Key    Key
	Values Values
}

// Settings is a YAML backed key/value store. Every setter writes the file.
type Settings struct {
	mu     sync.Mutex
	path   string
	v      Values
	subs   map[int]func(Event)
	nextID int
}

func defaults() Values {
	return Values{MaxBrightness: DefaultMaxBrightness, RefreshRate: DefaultRefreshRate}
}

// DefaultPath returns the settings file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "luxamp", "settings.yaml"), nil
}

// Load reads path. A missing file yields defaults and is created on the
// first write.
func Load(path string) (*Settings, error) {
	s := &Settings{path: path, subs: make(map[int]func(Event))}
	v, err := readValues(path)
	if err != nil {
		return nil, err
	}
	s.v = v
	return s, nil
}

func readValues(path string) (Values, error) {
	v := defaults()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	v.MaxBrightness = clampBrightness(v.MaxBrightness)
	if v.DelayMS < 0 {
		v.DelayMS = 0
	}
	if v.RefreshRate <= 0 {
		v.RefreshRate = DefaultRefreshRate
	}
	return v, nil
}

func clampBrightness(b float64) float64 {
	if b < 0 {
		return 0
	}
	if b > 1 {
		return 1
	}
	return b
}

// Path returns the backing file.
func (s *Settings) Path() string { return s.path }

// Values returns a snapshot of every setting.
func (s *Settings) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

func (s *Settings) DevicePath() string     { return s.Values().DevicePath }
func (s *Settings) DelayMS() int           { return s.Values().DelayMS }
func (s *Settings) MaxBrightness() float64 { return s.Values().MaxBrightness }
func (s *Settings) RefreshRate() int       { return s.Values().RefreshRate }

func (s *Settings) SetDevicePath(p string) error {
	return s.update(KeyDevicePath, func(v *Values) { v.DevicePath = p })
}

func (s *Settings) SetDelayMS(ms int) error {
	return s.update(KeyDelay, func(v *Values) { v.DelayMS = max(ms, 0) })
}

func (s *Settings) SetMaxBrightness(b float64) error {
	return s.update(KeyMaxBrightness, func(v *Values) { v.MaxBrightness = clampBrightness(b) })
}

func (s *Settings) SetRefreshRate(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("refresh rate must be positive, got %d", hz)
	}
	return s.update(KeyRefreshRate, func(v *Values) { v.RefreshRate = hz })
}

// LoadPresets returns the stored preset blob, or nil when none was saved.
func (s *Settings) LoadPresets() ([]byte, error) {
	p := s.Values().Presets
	if p == "" {
		return nil, nil
	}
	return []byte(p), nil
}

// SavePresets stores the preset blob.
func (s *Settings) SavePresets(b []byte) error {
	return s.update(KeyPresets, func(v *Values) { v.Presets = string(b) })
}

// Subscribe registers fn for change events and returns a function that
// removes it.
func (s *Settings) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Settings) update(key Key, fn func(v *Values)) error {
	s.mu.Lock()
	old := s.v
	fn(&s.v)
	if s.v == old {
		s.mu.Unlock()
		return nil
	}
	v := s.v
	err := s.writeLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Event{Key: key, Values: v})
	return err
}

func (s *Settings) writeLocked() error {
	b, err := yaml.Marshal(s.v)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

func (s *Settings) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Event), e Event) {
	for _, fn := range subs {
		fn(e)
	}
}

// reload re-reads the file and emits one event per changed key. The read
// holds the same lock as the setters' writes, so it never sees a file older
// than the in-memory values.
func (s *Settings) reload() error {
	s.mu.Lock()
	v, err := readValues(s.path)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	old := s.v
	s.v = v
	subs := s.subscribersLocked()
	s.mu.Unlock()

	var changed []Key
	if old.DevicePath != v.DevicePath {
		changed = append(changed, KeyDevicePath)
	}
	if old.DelayMS != v.DelayMS {
		changed = append(changed, KeyDelay)
	}
	if old.MaxBrightness != v.MaxBrightness {
		changed = append(changed, KeyMaxBrightness)
	}
	if old.RefreshRate != v.RefreshRate {
		changed = append(changed, KeyRefreshRate)
	}
	if old.Presets != v.Presets {
		changed = append(changed, KeyPresets)
	}
	for _, k := range changed {
		logging.For("config").WithField("key", k).Info("setting changed on disk")
		notify(subs, Event{Key: k, Values: v})
	}
	return nil
}
