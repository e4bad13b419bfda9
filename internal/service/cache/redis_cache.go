package cache

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	pkgcache "GridPulse/pkg/cache"
)

// RedisCache adapts the shared layered cache (memory L1, Redis L2) to
// the byte-oriented response cache.
type RedisCache struct {
	svc *pkgcache.LayeredCache
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		host, portStr = cfg.Addr, "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Password),
		pkgcache.WithRedisDB(cfg.DB),
		pkgcache.WithRedisPrefix("gridpulse:http"),
	)
	if err != nil {
		return nil, err
	}
	return &RedisCache{svc: pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(512))}, nil
}

func (r *RedisCache) GetBytes(key string) ([]byte, bool, error) {
    var s string
    err := r.svc.Get(context.Background(), key, &s)
    if err != nil {
        if errors.Is(err, pkgcache.ErrCacheMiss) {
            return nil, false, nil
        }
        return nil, false, err
    }
    return []byte(s), true, nil
}

func (r *RedisCache) SetBytes(key string, value []byte, ttl time.Duration) error {
    // the service stores string values verbatim, no JSON wrapping
    return r.svc.Set(context.Background(), key, string(value), ttl)
}
