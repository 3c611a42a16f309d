package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/cleaner-client/internal/validate"
)

// DefaultPath is where preferences live unless configured otherwise.
const DefaultPath = "~/.config/cleaner-client/preferences.json"

// Preferences is the persisted front-end preference blob.
type Preferences struct {
	Theme       string `json:"theme" validate:"theme"`
	Language    string `json:"language" validate:"language"`
	AutoScan    bool   `json:"autoScan"`
	DataSharing bool   `json:"dataSharing"`
}

// Defaults returns the preferences used on first start.
func Defaults() Preferences {
	return Preferences{
		Theme:       "dark",
		Language:    "de",
		AutoScan:    true,
		DataSharing: false,
	}
}

// Storage handles loading and saving the preferences file.
type Storage struct {
	Path string `validate:"required,filepath"`

	mu   sync.RWMutex
	data Preferences
}

// NewStorage creates a Storage for path and loads it when the file exists.
func NewStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	s := &Storage{Path: expandedPath, data: Defaults()}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("storage path %q: %w", path, err)
	}

	if err := s.Load(); err != nil {
		// If the file doesn't exist, we can ignore the error.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return s, nil
}

// NewOrExistingStorage returns existing storage if the file exists, or creates a new one otherwise.
// When creating a new storage, it writes the defaults to disk immediately.
func NewOrExistingStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(expandedPath); err == nil {
		return NewStorage(path)
	} else if os.IsNotExist(err) {
		s, err := NewStorage(path)
		if err != nil {
			return nil, err
		}
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, err
}

// Preferences returns a copy of the current preferences.
func (s *Storage) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Load reads the file. Keys missing from the file keep their defaults and
// invalid values are reset to the default and written back.
func (s *Storage) Load() error {
	logrus.Debug("Loading preferences from: ", s.Path)
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}

	p := Defaults()
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("parse %s: %w", s.Path, err)
	}

	// Validate loaded data and self-heal when possible.
	changed := false
	def := Defaults()
	if validate.Var(p.Theme, "theme") != nil {
		logrus.Warnf("Invalid theme %q in preferences; using %q.", p.Theme, def.Theme)
		p.Theme = def.Theme
		changed = true
	}
	if validate.Var(p.Language, "language") != nil {
		logrus.Warnf("Invalid language %q in preferences; using %q.", p.Language, def.Language)
		p.Language = def.Language
		changed = true
	}

	s.mu.Lock()
	s.data = p
	s.mu.Unlock()

	if changed {
		return s.Save()
	}
	return nil
}

// Save writes the preferences to the file.
func (s *Storage) Save() error {
	logrus.Debug("Saving preferences to: ", s.Path)
	s.mu.RLock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	// Ensure parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}

// Update applies fn to the preferences, validates the result and saves it.
// An invalid result is discarded.
func (s *Storage) Update(fn func(*Preferences)) error {
	s.mu.Lock()
	next := s.data
	fn(&next)
	if err := validate.Struct(next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("invalid preferences: %w", err)
	}
	s.data = next
	s.mu.Unlock()
	return s.Save()
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
