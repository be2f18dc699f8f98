package cache

import (
	"context"
	"time"
)

// NullCache backs registry lookups when caching is turned off, as with
// sync --no-cache. Every Get misses, so each lookup goes to the registry.
type NullCache struct{}

// NewNullCache returns a cache that holds nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error { return nil }
func (NullCache) Close() error { return nil }

// Clear succeeds trivially, so callers can clear whichever backend Open
// returned without special-casing a disabled cache.
func (NullCache) Clear(context.Context) error { return nil }

var (
	_ Cache   = NullCache{}
	_ Clearer = NullCache{}
)
