package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// TinyLFU is a ristretto-backed cache. Set waits for the write buffer, so a
// value is readable once Set returns.
type TinyLFU[T any] struct {
	c   *ristretto.Cache[string, T]
	ttl time.Duration
}

// NewTinyLFU creates a cache holding roughly maxItems entries for ttl each.
func NewTinyLFU[T any](maxItems int64, ttl time.Duration) (*TinyLFU[T], error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, T]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		// MaxCost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &TinyLFU[T]{c: c, ttl: ttl}, nil
}

func (t *TinyLFU[T]) Get(key string) (T, bool) {
	return t.c.Get(key)
}

func (t *TinyLFU[T]) Set(key string, data T) {
	t.c.SetWithTTL(key, data, 1, t.ttl)
	t.c.Wait()
}

func (t *TinyLFU[T]) Delete(key string) {
	t.c.Del(key)
}

// Clear drops every entry.
func (t *TinyLFU[T]) Clear() {
	t.c.Clear()
}

func (t *TinyLFU[T]) Close() {
	t.c.Close()
}
