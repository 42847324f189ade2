package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *goredis.Client used by Redis.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultTTL   = 15 * time.Second
	retryInitial = 10 * time.Millisecond
	retryMax     = 250 * time.Millisecond
)

// Redis is a single-instance Redis lock (SET NX PX with a random token) for
// running several API instances over a shared file ledger.
type Redis struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedis(client RedisClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: defaultTTL}
}

// WithTTL sets how long a lock survives a crashed holder.
func (r *Redis) WithTTL(ttl time.Duration) *Redis {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	name := r.prefix + key
	token := uuid.NewString()
	wait := retryInitial

	for {
		ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, retryMax)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must not depend on the caller's context being alive.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// On failure the key still expires after ttl.
			_ = r.client.Eval(rctx, releaseScript, []string{name}, token).Err()
		})
	}, nil
}
