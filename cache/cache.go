// Package cache provides cinehub.Cache implementations backed by process
// memory or Redis.
package cache

import "github.com/CreativeUnicorns/cinehub"

var (
	_ cinehub.Cache = (*MemoryCache)(nil)
	_ cinehub.Cache = (*RedisCache)(nil)
)
