// Package indicator holds the derived indicators attached to diagram nodes.
package indicator

import (
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/keepsake/pkg/snapshot"
)

// Manager is a synchronized indicator store keyed by indicator ID.
type Manager struct {
	mu    sync.RWMutex
	items map[string]snapshot.IndicatorRecord
	order []string
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{items: make(map[string]snapshot.IndicatorRecord)}
}

// All returns every indicator in insertion order.
func (m *Manager) All() []snapshot.IndicatorRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]snapshot.IndicatorRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, clone(m.items[id]))
	}
	return out
}

// Add inserts an indicator, replacing any indicator with the same ID.
func (m *Manager) Add(rec snapshot.IndicatorRecord) error {
	if rec.ID == "" || rec.ElementID == "" {
		return errors.New("indicator requires an id and a backing element id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	m.items[rec.ID] = clone(rec)
	return nil
}

// Remove deletes an indicator by ID.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return false
	}
	delete(m.items, id)
	m.order = without(m.order, map[string]bool{id: true})
	return true
}

// PruneOrphans removes every indicator whose backing element does not exist
// and returns the removed IDs, sorted.
func (m *Manager) PruneOrphans(exists func(elementID string) bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make(map[string]bool)
	for id, rec := range m.items {
		if !exists(rec.ElementID) {
			removed[id] = true
			delete(m.items, id)
		}
	}
	m.order = without(m.order, removed)

	ids := make([]string, 0, len(removed))
	for id := range removed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear removes every indicator.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]snapshot.IndicatorRecord)
	m.order = nil
}

func without(order []string, drop map[string]bool) []string {
	out := order[:0]
	for _, id := range order {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

func clone(rec snapshot.IndicatorRecord) snapshot.IndicatorRecord {
	if rec.Attrs != nil {
		attrs := make(map[string]string, len(rec.Attrs))
		for k, v := range rec.Attrs {
			attrs[k] = v
		}
		rec.Attrs = attrs
	}
	return rec
}
