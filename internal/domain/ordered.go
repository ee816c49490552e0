package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// The zero value is ready to use. Its JSON form is an object whose keys
// appear in insertion order; decoding keeps the order found in the input.
type OrderedMap[V any] struct {
	keys  []string
	items map[string]*V
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	return slices.Clone(m.keys)
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (*V, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Has reports whether key is present.
func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.items[key]
	return ok
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position and has its value replaced.
func (m *OrderedMap[V]) Set(key string, v *V) {
	if m.items == nil {
		m.items = make(map[string]*V)
	}
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
}

// Delete removes key and returns the removed value.
func (m *OrderedMap[V]) Delete(key string) (*V, bool) {
	v, ok := m.items[key]
	if !ok {
		return nil, false
	}
	delete(m.items, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
	return v, true
}

// Clear removes every entry.
func (m *OrderedMap[V]) Clear() {
	m.keys = nil
	m.items = nil
}

// All iterates over entries in insertion order.
func (m *OrderedMap[V]) All() iter.Seq2[string, *V] {
	return func(yield func(string, *V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.items[k]) {
				return
			}
		}
	}
}

// Values iterates over values in insertion order.
func (m *OrderedMap[V]) Values() iter.Seq[*V] {
	return func(yield func(*V) bool) {
		for _, k := range m.keys {
			if !yield(m.items[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.items[k])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. A JSON null yields
// an empty map. Duplicate keys keep their first position and last value.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	m.Clear()

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}

		v := new(V)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		m.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
