// Package raci stores the responsibility matrix: one responsibility letter
// per task and role.
package raci

import (
	"sync"

	"github.com/papercomputeco/keepsake/pkg/snapshot"
)

// Store is a synchronized responsibility matrix.
type Store struct {
	mu     sync.RWMutex
	roles  []string
	matrix map[string]map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{matrix: make(map[string]map[string]string)}
}

// Roles returns the role columns.
func (s *Store) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.roles...)
}

// SetRoles replaces the role columns.
func (s *Store) SetRoles(roles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = append([]string{}, roles...)
}

// Matrix returns a copy of the task -> role -> letter matrix.
func (s *Store) Matrix() map[string]map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMatrix(s.matrix)
}

// SetMatrix replaces the matrix verbatim.
func (s *Store) SetMatrix(m map[string]map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matrix = copyMatrix(m)
}

// Assign sets one cell. An empty letter clears it.
func (s *Store) Assign(taskID, role, letter string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.matrix[taskID]
	if !ok {
		if letter == "" {
			return
		}
		row = make(map[string]string)
		s.matrix[taskID] = row
	}
	if letter == "" {
		delete(row, role)
		if len(row) == 0 {
			delete(s.matrix, taskID)
		}
		return
	}
	row[role] = letter
}

// Snapshot returns the roles and the rows whose task passes keep.
func (s *Store) Snapshot(keep func(taskID string) bool) snapshot.ResponsibilityMatrix {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := snapshot.ResponsibilityMatrix{
		Roles:  append([]string{}, s.roles...),
		Matrix: make(map[string]map[string]string, len(s.matrix)),
	}
	for task, row := range s.matrix {
		if keep != nil && !keep(task) {
			continue
		}
		out.Matrix[task] = copyRow(row)
	}
	return out
}

func copyMatrix(m map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(m))
	for task, row := range m {
		out[task] = copyRow(row)
	}
	return out
}

func copyRow(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
