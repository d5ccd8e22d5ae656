package outputcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is an in-process LRU store. Expiry is checked on read, so a
// stale entry occupies its slot until read or evicted.
type Memory struct {
	cache *lru.Cache[string, Entry]
	now   func() time.Time
}

// NewMemory creates a memory store holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	cache, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &Memory{cache: cache, now: time.Now}, nil
}

func (m *Memory) Get(ctx context.Context, key string) (Entry, error) {
	entry, ok := m.cache.Get(key)
	if !ok {
		return Entry{}, ErrMiss
	}
	if entry.Expired(m.now()) {
		m.cache.Remove(key)
		return Entry{}, ErrMiss
	}
	return entry, nil
}

func (m *Memory) Put(ctx context.Context, entry Entry) error {
	m.cache.Add(entry.Key, entry)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.cache.Remove(key)
	return nil
}

// Len reports the number of resident entries, expired ones included.
func (m *Memory) Len() int { return m.cache.Len() }
