package creds

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tvlink/tvlink/internal/device"
)

const credsFile = "credentials.yaml"

// entry is one stored credential record.
type entry struct {
	Token  string `yaml:"token,omitempty"`
	Paired bool   `yaml:"paired,omitempty"`
}

// fileData is the on-disk YAML document.
type fileData struct {
	Version int               `yaml:"version"`
	Entries map[string]*entry `yaml:"entries,omitempty"`
}

// FileStore is a Store backed by a YAML file. Writes are atomic
// (write-to-temp then rename) to prevent corruption on crash.
type FileStore struct {
	path string

	mu   sync.Mutex
	data *fileData
}

// NewFileStore opens (or creates) a credential store at path. A missing file
// is not an error; it is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: &fileData{Version: 1, Entries: map[string]*entry{}}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	var data fileData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse credential store: %w", err)
	}
	if data.Version != 1 {
		return nil, fmt.Errorf("unsupported credential store version: %d (expected 1)", data.Version)
	}
	if data.Entries == nil {
		data.Entries = map[string]*entry{}
	}
	s.data = &data
	return s, nil
}

// DefaultPath returns the conventional credential store location,
// $XDG_CONFIG_HOME/tvlink/credentials.yaml or ~/.config/tvlink/credentials.yaml.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tvlink", credsFile), nil
}

// Token returns the stored credential for the device, if any.
func (s *FileStore) Token(brand device.Brand, deviceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data.Entries[key(brand, deviceID)]
	if !ok || e.Token == "" {
		return "", false
	}
	return e.Token, true
}

// SetToken stores the credential and persists the store.
func (s *FileStore) SetToken(brand device.Brand, deviceID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(brand, deviceID)
	e.Token = token
	return s.save()
}

// ClearToken removes the credential for the device and persists the store.
func (s *FileStore) ClearToken(brand device.Brand, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(brand, deviceID)
	e, ok := s.data.Entries[k]
	if !ok {
		return nil
	}
	e.Token = ""
	if !e.Paired {
		delete(s.data.Entries, k)
	}
	return s.save()
}

// Paired reports whether the device completed a pairing handshake.
func (s *FileStore) Paired(brand device.Brand, deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data.Entries[key(brand, deviceID)]
	return ok && e.Paired
}

// SetPaired records the pairing flag and persists the store.
func (s *FileStore) SetPaired(brand device.Brand, deviceID string, paired bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(brand, deviceID)
	e.Paired = paired
	if !paired && e.Token == "" {
		delete(s.data.Entries, key(brand, deviceID))
	}
	return s.save()
}

// ensure returns the entry for the device, creating it if missing.
// Callers must hold s.mu.
func (s *FileStore) ensure(brand device.Brand, deviceID string) *entry {
	k := key(brand, deviceID)
	e, ok := s.data.Entries[k]
	if !ok {
		e = &entry{}
		s.data.Entries[k] = e
	}
	return e
}

// save writes the store to disk atomically. Callers must hold s.mu.
func (s *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential store directory: %w", err)
	}

	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal credential store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save credential store: %w", err)
	}
	return nil
}
