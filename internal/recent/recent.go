// Package recent persists the most recently opened image paths.
package recent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultMax is the number of paths kept.
	DefaultMax = 5

	fileName = "recent_files.json"
	appDir   = "textractor"
)

// Store is an ordered, duplicate-free list of paths, most recent first.
type Store struct {
	mu    sync.RWMutex
	path  string
	max   int
	files []string
}

// DefaultPath returns ~/.config/textractor/recent_files.json or the
// platform equivalent.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, fileName)
}

// Load reads the list stored at path. A missing or unreadable file yields
// an empty list.
func Load(path string, max int) *Store {
	if max <= 0 {
		max = DefaultMax
	}
	s := &Store{path: path, max: max}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		return s
	}
	for _, f := range files {
		if f != "" && !s.contains(f) && len(s.files) < s.max {
			s.files = append(s.files, f)
		}
	}
	return s
}

func (s *Store) contains(path string) bool {
	for _, f := range s.files {
		if f == path {
			return true
		}
	}
	return false
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Files returns a copy of the list, most recent first.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Add moves path to the front, trims the list and writes it to disk.
func (s *Store) Add(path string) error {
	if path == "" {
		return nil
	}
	path = filepath.Clean(path)

	s.mu.Lock()
	files := make([]string, 0, s.max)
	files = append(files, path)
	for _, f := range s.files {
		if f != path && len(files) < s.max {
			files = append(files, f)
		}
	}
	s.files = files
	s.mu.Unlock()

	return s.Save()
}

// Save writes the list to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.files, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
