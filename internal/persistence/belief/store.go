// Package belief holds the key/value store in which every character's
// persistent state lives. Values are strings; callers own the encoding.
package belief

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("belief not found")

// Store is the surface the simulation persists through.
type Store interface {
	Get(character, key string) (string, bool)
	Set(character, key, value string)
	Exists(character, key string) bool
}

// Remover is implemented by stores that can drop a key outright.
type Remover interface {
	Remove(character, key string)
}

// Enumerable is needed to rebuild a game from a store.
type Enumerable interface {
	Store
	Characters() []string
	Keys(character string) []string
}

// Remove drops key from s when supported and blanks it otherwise.
func Remove(s Store, character, key string) {
	if s == nil {
		return
	}
	if r, ok := s.(Remover); ok {
		r.Remove(character, key)
		return
	}
	s.Set(character, key, "")
}

// Memory is a concurrency-safe in-process Store. The background line-up
// persistence reads from clones, never from the live instance.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]string{}}
}

func (m *Memory) Get(character, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[character][key]
	return v, ok
}

func (m *Memory) Set(character, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.data[character]
	if rec == nil {
		rec = map[string]string{}
		m.data[character] = rec
	}
	rec[key] = value
}

func (m *Memory) Exists(character, key string) bool {
	_, ok := m.Get(character, key)
	return ok
}

func (m *Memory) Remove(character, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[character], key)
}

// Characters returns every character with at least one belief, sorted.
func (m *Memory) Characters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for c, rec := range m.data {
		if len(rec) > 0 {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Keys returns the sorted belief keys of one character.
func (m *Memory) Keys(character string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec := m.data[character]
	out := make([]string, 0, len(rec))
	for k := range rec {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeysWithPrefix returns the suffixes of keys that start with prefix.
func (m *Memory) KeysWithPrefix(character, prefix string) []string {
	return TrimPrefixed(m.Keys(character), prefix)
}

// Record returns a copy of one character's beliefs.
func (m *Memory) Record(character string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec := m.data[character]
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// PutRecord replaces one character's beliefs wholesale.
func (m *Memory) PutRecord(character string, rec map[string]string) {
	cp := make(map[string]string, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[character] = cp
}

// Clone returns a deep copy.
func (m *Memory) Clone() *Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := &Memory{data: make(map[string]map[string]string, len(m.data))}
	for c, rec := range m.data {
		cp := make(map[string]string, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out.data[c] = cp
	}
	return out
}

// TrimPrefixed filters keys by prefix and strips it.
func TrimPrefixed(keys []string, prefix string) []string {
	var out []string
	for _, k := range keys {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			out = append(out, rest)
		}
	}
	return out
}
