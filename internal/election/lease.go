// Package election elects the single coordinator process through a redis
// lease. The holder renews the lease while it runs; every process resolves
// the current holder to a callable handle.
package election

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/errors"
)

const (
	// DefaultKey is the redis key holding the coordinator ID
	DefaultKey = "auras:coordinator"
	// DefaultTTL is how long a lease lives without renewal
	DefaultTTL = 10 * time.Second
)

// renewScript extends the lease only while it is still ours
const renewScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

// resignScript deletes the lease only while it is still ours
const resignScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Config holds the lease's dependencies
type Config struct {
	Client redis.Cmdable
	// ID identifies this process as a coordinator candidate
	ID string
	// Directory resolves the elected ID to a handle
	Directory coordinator.Directory
	// Key defaults to DefaultKey
	Key string
	// TTL defaults to DefaultTTL
	TTL time.Duration
}

// Lease is a redis-backed coordinator.Elector
type Lease struct {
	client    redis.Cmdable
	id        string
	directory coordinator.Directory
	key       string
	ttl       time.Duration
}

var _ coordinator.Elector = (*Lease)(nil)

// NewLease creates a Lease
func NewLease(cfg *Config) *Lease {
	if cfg.Client == nil {
		panic("redis client is required")
	}
	if cfg.ID == "" {
		panic("candidate id is required")
	}
	if cfg.Directory == nil {
		panic("coordinator directory is required")
	}
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lease{client: cfg.Client, id: cfg.ID, directory: cfg.Directory, key: key, ttl: ttl}
}

// Campaign takes the lease if it is free or renews it if already held.
// Reports whether this process is the coordinator afterwards.
func (l *Lease) Campaign(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, l.id, l.ttl).Result()
	if err != nil {
		return false, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to acquire coordinator lease")
	}
	if acquired {
		return true, nil
	}

	renewed, err := l.client.Eval(ctx, renewScript, []string{l.key}, l.id, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to renew coordinator lease")
	}
	return renewed == 1, nil
}

// Resign releases the lease if this process holds it
func (l *Lease) Resign(ctx context.Context) error {
	if err := l.client.Eval(ctx, resignScript, []string{l.key}, l.id).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to release coordinator lease")
	}
	return nil
}

// Leader returns the ID of the current lease holder
func (l *Lease) Leader(ctx context.Context) (string, bool, error) {
	id, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to read coordinator lease")
	}
	return id, true, nil
}

// Active implements coordinator.Elector
func (l *Lease) Active(ctx context.Context) (coordinator.Handle, bool) {
	id, ok, err := l.Leader(ctx)
	if err != nil {
		log.Printf("Election: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	h, ok := l.directory.Handle(id)
	if !ok {
		log.Printf("Election: coordinator %s is not reachable from this process", id)
	}
	return h, ok
}

// Run campaigns every third of the TTL until ctx ends, then resigns
func (l *Lease) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	leading := false
	for {
		held, err := l.Campaign(ctx)
		switch {
		case err != nil:
			log.Printf("Election: %v", err)
		case held && !leading:
			log.Printf("Election: %s is now the coordinator", l.id)
		case !held && leading:
			log.Printf("Election: %s lost the coordinator lease", l.id)
		}
		leading = held && err == nil

		select {
		case <-ctx.Done():
			resignCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return l.Resign(resignCtx)
		case <-ticker.C:
		}
	}
}
