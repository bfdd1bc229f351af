// Package distlock guards the single-active-import invariant across
// service instances sharing one database. The in-process supervisor is
// the primary enforcement; this lock only prevents two accidentally
// co-deployed instances from both ingesting into the same tables.
package distlock

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the locking contract the import supervisor acquires around
// spawning a worker and releases when the worker drains.
type DistLock interface {
	// Acquire tries to take the lock without blocking. Returns true on
	// success, false when another holder has it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock back if this instance still owns it.
	Release(ctx context.Context) error
}

// NewLock picks the best available backend: Redis when a client is
// configured (works across hosts), otherwise a Postgres advisory lock on
// the shared database. Both release implicitly on crash — Redis via TTL
// expiry, Postgres when the session drops.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}
