// Package cache provides byte-oriented caching backends for registry lookups.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entry files under the user cache directory (CLI default)
//   - [RedisCache]: a shared Redis instance, useful on CI runners
//   - [NullCache]: never stores anything
//
// Use [Open] to pick a backend from [Config]:
//
//	c, err := cache.Open(ctx, cache.Config{RedisURL: os.Getenv("WSBUMP_REDIS_URL")})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache stores opaque byte values with an optional TTL.
//
// Get returns (nil, false, nil) on a miss; an error is reserved for backend
// failures. A zero TTL means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Config selects and configures a backend.
type Config struct {
	// Disabled returns a [NullCache].
	Disabled bool
	// RedisURL selects [RedisCache] when set (redis:// or rediss://).
	RedisURL string
	// Prefix namespaces Redis keys. Defaults to [DefaultPrefix].
	Prefix string
	// Dir is the [FileCache] directory. Defaults to [DefaultDir].
	Dir string
}

// DefaultPrefix namespaces keys written to shared backends.
const DefaultPrefix = "wsbump:"

// Open returns the backend described by cfg.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch {
	case cfg.Disabled:
		return NewNullCache(), nil
	case cfg.RedisURL != "":
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = DefaultPrefix
		}
		return NewRedisCache(ctx, cfg.RedisURL, prefix)
	}

	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	return NewFileCache(dir)
}

// DefaultDir returns $XDG_CACHE_HOME/wsbump, falling back to the platform
// user cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "wsbump"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "wsbump"), nil
}
