package product

import "sync"

// idMap карта pim_id -> product_id, общая для воркеров
type idMap struct {
	mu  sync.RWMutex
	ids map[string]int
}

func newIDMap(ids map[string]int) *idMap {
	m := &idMap{ids: make(map[string]int, len(ids))}
	for k, v := range ids {
		m.ids[k] = v
	}
	return m
}

func (m *idMap) Get(pimID string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, found := m.ids[pimID]
	return id, found
}

func (m *idMap) Set(pimID string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[pimID] = id
}

func (m *idMap) Snapshot() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.ids))
	for k, v := range m.ids {
		out[k] = v
	}
	return out
}
