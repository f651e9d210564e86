package creds

import (
	"sync"

	"github.com/tvlink/tvlink/internal/device"
)

// MemStore is an in-memory Store. Nothing survives the process; it exists for
// tests and for running without a writable config directory.
type MemStore struct {
	mu      sync.Mutex
	tokens  map[string]string
	pairing map[string]bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tokens:  map[string]string{},
		pairing: map[string]bool{},
	}
}

func (s *MemStore) Token(brand device.Brand, deviceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[key(brand, deviceID)]
	return t, ok && t != ""
}

func (s *MemStore) SetToken(brand device.Brand, deviceID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key(brand, deviceID)] = token
	return nil
}

func (s *MemStore) ClearToken(brand device.Brand, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key(brand, deviceID))
	return nil
}

func (s *MemStore) Paired(brand device.Brand, deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairing[key(brand, deviceID)]
}

func (s *MemStore) SetPaired(brand device.Brand, deviceID string, paired bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if paired {
		s.pairing[key(brand, deviceID)] = true
	} else {
		delete(s.pairing, key(brand, deviceID))
	}
	return nil
}
