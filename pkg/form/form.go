// Package form stores the small set of form and preference fields saved with
// a project.
package form

import "sync"

// Store is a synchronized string field store.
type Store struct {
	mu     sync.RWMutex
	fields map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{fields: make(map[string]string)}
}

// Fields returns a copy of every field.
func (s *Store) Fields() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Get returns one field.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.fields[key]
	return v, ok
}

// Set writes one field.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[key] = value
}

// SetFields merges fields into the store.
func (s *Store) SetFields(fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.fields[k] = v
	}
}

// Select returns the fields named in keys that are present.
func (s *Store) Select(keys []string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.fields[k]; ok {
			out[k] = v
		}
	}
	return out
}
