package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/release"
)

// ConfigFile is the optional per-workspace configuration file.
const ConfigFile = "wsbump.toml"

// redisEnv overrides the configured redis-url.
const redisEnv = "WSBUMP_REDIS_URL"

// Config holds defaults read from wsbump.toml. Command-line flags take
// precedence over every field.
//
//	remote = "upstream"
//	stable-branch = "stable"
//	prerelease-branch = "main"
//	lockfile = true
//	cache-ttl = "1h"
//	redis-url = "redis://localhost:6379/0"
type Config struct {
	Remote           string   `toml:"remote"`
	StableBranch     string   `toml:"stable-branch"`
	PrereleaseBranch string   `toml:"prerelease-branch"`
	Lockfile         bool     `toml:"lockfile"`
	CacheTTL         duration `toml:"cache-ttl"`
	RedisURL         string   `toml:"redis-url"`
}

// duration decodes TOML strings such as "90s" or "1h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Remote:   release.DefaultRemote,
		Lockfile: true,
		CacheTTL: duration{defaultCacheTTL},
		RedisURL: os.Getenv(redisEnv),
	}
}

// LoadConfig reads wsbump.toml from dir. A missing file yields the defaults;
// unknown keys are rejected so typos do not go unnoticed. WSBUMP_REDIS_URL,
// when set, replaces redis-url.
func LoadConfig(dir string) (*Config, error) {
	cfg := defaultConfig()
	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if env := os.Getenv(redisEnv); env != "" {
		cfg.RedisURL = env
	}
	if cfg.Remote == "" {
		cfg.Remote = release.DefaultRemote
	}
	if cfg.CacheTTL.Duration < 0 {
		return nil, fmt.Errorf("%s: cache-ttl must not be negative", path)
	}
	return cfg, nil
}
