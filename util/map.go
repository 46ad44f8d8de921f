package util

import "sort"

func MapKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// SortedMapKeys returns the keys of m ordered by less.
func SortedMapKeys[K comparable, V any](m map[K]V, less func(a, b K) bool) []K {
	keys := MapKeys(m)
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}

type DefaultMap[K comparable, V any] struct {
	content     map[K]V
	defaultFunc func(K) V
}

func NewDefaultMap[K comparable, V any](defaultFunc func(K) V) *DefaultMap[K, V] {
	return &DefaultMap[K, V]{make(map[K]V), defaultFunc}
}

func (m *DefaultMap[K, V]) Get(key K) V {
	var val V
	var ok bool
	if val, ok = m.content[key]; !ok {
		val = m.defaultFunc(key)
		m.content[key] = val
	}
	return val
}

// Lookup does not create a default entry.
func (m *DefaultMap[K, V]) Lookup(key K) (V, bool) {
	val, ok := m.content[key]
	return val, ok
}

func (m *DefaultMap[K, V]) Set(key K, val V) {
	m.content[key] = val
}

func (m *DefaultMap[K, V]) Len() int {
	return len(m.content)
}

func (m *DefaultMap[K, V]) Keys() []K {
	return MapKeys(m.content)
}
