package arena

import "golang.org/x/exp/maps"

// Map is an arena-accounted hash map. Dispose, if set, is invoked on the
// value of every entry removed via Delete or Clear.
type Map[K comparable, V any] struct {
	arena   *Arena
	items   map[K]V
	Dispose func(K, V)
}

func NewMap[K comparable, V any](a *Arena) *Map[K, V] {
	return &Map[K, V]{arena: a, items: make(map[K]V)}
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.items[k]
	return v, ok
}

func (m *Map[K, V]) Put(k K, v V) {
	if _, exists := m.items[k]; !exists {
		m.arena.used += 16
		m.arena.allocated += 16
	}
	m.items[k] = v
}

func (m *Map[K, V]) Delete(k K) {
	if v, ok := m.items[k]; ok {
		if m.Dispose != nil {
			m.Dispose(k, v)
		}
		delete(m.items, k)
	}
}

func (m *Map[K, V]) Len() int { return len(m.items) }

// Clear empties the map, invoking Dispose on every entry.
func (m *Map[K, V]) Clear() {
	if m.Dispose != nil {
		for k, v := range m.items {
			m.Dispose(k, v)
		}
	}
	m.items = make(map[K]V)
}

// Keys returns the map's keys in unspecified order, via x/exp/maps (this
// predates the stdlib maps package the teacher's go.mod era didn't have).
func (m *Map[K, V]) Keys() []K { return maps.Keys(m.items) }

// Values mirrors Keys for the map's values.
func (m *Map[K, V]) Values() []V { return maps.Values(m.items) }
