// Package memstore keeps values in process memory. Values are lost on restart.
package memstore

import (
	"context"
	"sync"
)

// Store is a mutex-guarded map. The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	data map[string]string

	// SetHook, when non-nil, runs before every write and can fail it.
	SetHook func(key, value string) error
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetHook != nil {
		if err := s.SetHook(key, value); err != nil {
			return err
		}
	}
	s.data[key] = value
	return nil
}
