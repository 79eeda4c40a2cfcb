// Package cache define la interfaz de cache usada para sesiones y datos efímeros.
package cache

import "time"

// Cache es un KV simple con TTL. Las implementaciones viven en
// cache/memory (go-cache) y cache/redis.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
