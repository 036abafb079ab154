// Package cache holds the excursion listing cache. Availability and the
// listing price move on every booking, so entries are short lived and every
// seat or catalogue mutation drops them.
package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ListingKey = "excursions:listing"
	// GenerationKey is bumped by every invalidation. A listing rendered
	// under an older generation is never stored.
	GenerationKey = "excursions:listing:gen"
)

// ListingCache stores rendered listings. Callers read Generation before
// loading from the database and pass it to Set; Set drops the value when an
// invalidation happened in between.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Generation(ctx context.Context) (int64, bool)
	Set(ctx context.Context, key string, value []byte, generation int64)
	Invalidate(ctx context.Context)
}

// Nop never stores anything. Used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Generation(context.Context) (int64, bool)   { return 0, false }
func (Nop) Set(context.Context, string, []byte, int64) {}
func (Nop) Invalidate(context.Context)                 {}

var errStaleGeneration = errors.New("listing generation changed")

// Redis keeps listing payloads as JSON strings. Failures degrade to cache
// misses; the database stays authoritative.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedis(addr, password string, ttl time.Duration) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 2 * time.Second,
		ReadTimeout: time.Second,
	})
	return &Redis{Client: client, TTL: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[CACHE] action=get key=%s msg=%v", key, err)
		}
		return nil, false
	}
	return val, true
}

// Generation returns the current invalidation counter; a missing key is 0.
func (r *Redis) Generation(ctx context.Context) (int64, bool) {
	gen, err := r.Client.Get(ctx, GenerationKey).Int64()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		log.Printf("[CACHE] action=generation key=%s msg=%v", GenerationKey, err)
		return 0, false
	}
}

// Set writes value only while the generation is still the one the caller
// rendered under. WATCH makes an Invalidate racing with the write abort it.
func (r *Redis) Set(ctx context.Context, key string, value []byte, generation int64) {
	err := r.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, GenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, value, r.TTL)
			return nil
		})
		return err
	}, GenerationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		log.Printf("[CACHE] action=set_skipped key=%s msg=stale generation %d", key, generation)
	default:
		log.Printf("[CACHE] action=set key=%s msg=%v", key, err)
	}
}

func (r *Redis) Invalidate(ctx context.Context) {
	_, err := r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, GenerationKey)
		p.Del(ctx, ListingKey)
		return nil
	})
	if err != nil {
		log.Printf("[CACHE] action=invalidate key=%s msg=%v", ListingKey, err)
	}
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
