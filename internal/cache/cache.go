// Package cache provides the analysis result caches.
package cache

import (
	"fmt"
	"strings"
)

type Options struct {
	Driver   string // redis | memcached | none
	Addrs    []string
	Password string
	DB       int
}

// New picks a backend from opts. An empty driver disables caching.
func New(opts Options) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "none", "noop":
		return Noop{}, nil
	case "redis", "valkey":
		if len(opts.Addrs) == 0 {
			return nil, fmt.Errorf("cache: redis needs an address")
		}
		return NewRedis(opts.Addrs[0], opts.Password, opts.DB), nil
	case "memcached":
		if len(opts.Addrs) == 0 {
			return nil, fmt.Errorf("cache: memcached needs at least one address")
		}
		return NewMemcached(opts.Addrs...), nil
	}
	return nil, fmt.Errorf("cache: unknown driver %q", opts.Driver)
}
