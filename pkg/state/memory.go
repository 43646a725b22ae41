package state

import (
	"github.com/patrickmn/go-cache"
	"github.com/spf13/cast"
)

// MemoryStore keeps state in process memory. Entries never expire; the
// store is lost on restart.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates an empty store whose entries never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

// Load implements table.StateStore.
func (s *MemoryStore) Load(key string) (float64, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return 0, false, nil
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false, err
	}

	return f, true, nil
}

// Save implements table.StateStore.
func (s *MemoryStore) Save(key string, v float64) error {
	s.c.Set(key, v, cache.NoExpiration)

	return nil
}

// Keys returns the stored keys in no particular order.
func (s *MemoryStore) Keys() ([]string, error) {
	items := s.c.Items()
	keys := make([]string, 0, len(items))

	for k := range items {
		keys = append(keys, k)
	}

	return keys, nil
}

// Close drops every entry.
func (s *MemoryStore) Close() error {
	s.c.Flush()

	return nil
}
