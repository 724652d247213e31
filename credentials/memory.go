package credentials

import "sync"

var _ KV = (*MemoryKV)(nil)

// MemoryKV is a process-local KV. Used in tests and when no database path
// is configured.
type MemoryKV struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Put(values map[string]string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryKV) Delete(keys ...string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
