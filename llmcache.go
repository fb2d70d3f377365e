package mcqbank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache stores model responses by prompt hash. A miss is reported
// with ok == false and a nil error.
type ResponseCache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// RedisResponseCache keeps responses in Redis with a fixed TTL
type RedisResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResponseCache connects to redisURL and checks the connection
func NewRedisResponseCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisResponseCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisResponseCache{client: client, ttl: ttl}, nil
}

// Get returns the cached response for key
func (c *RedisResponseCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key
func (c *RedisResponseCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// Close closes the Redis client
func (c *RedisResponseCache) Close() error {
	return c.client.Close()
}

// CachingGenerator serves repeated prompts from a ResponseCache, so
// re-running the same page range does not pay for the same completions.
// Cache failures never fail the call.
type CachingGenerator struct {
	next      Generator
	cache     ResponseCache
	namespace string
}

// NewCachingGenerator wraps next. namespace should identify the model so
// that switching models does not serve stale answers.
func NewCachingGenerator(next Generator, cache ResponseCache, namespace string) *CachingGenerator {
	return &CachingGenerator{next: next, cache: cache, namespace: namespace}
}

type replyCheckKey struct{}

// WithReplyCheck returns a context whose model replies must pass check to
// be cached. A cached reply that fails check is treated as a miss.
func WithReplyCheck(ctx context.Context, check func(reply string) error) context.Context {
	return context.WithValue(ctx, replyCheckKey{}, check)
}

func replyCheck(ctx context.Context) func(string) error {
	if check, ok := ctx.Value(replyCheckKey{}).(func(string) error); ok && check != nil {
		return check
	}
	return func(string) error { return nil }
}

// Generate checks the cache before calling through
func (c *CachingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := c.key(prompt)
	check := replyCheck(ctx)

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Printf("%s LLM cache read failed: %v", markWarn, err)
	} else if ok {
		if err := check(cached); err == nil {
			VerboseLog("LLM cache hit %s", key)
			return cached, nil
		}
		VerboseLog("LLM cache entry %s rejected, asking again", key)
	}

	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := check(text); err != nil {
		VerboseLog("LLM reply not cached: %v", err)
		return text, nil
	}
	if err := c.cache.Set(ctx, key, text); err != nil {
		log.Printf("%s LLM cache write failed: %v", markWarn, err)
	}
	return text, nil
}

func (c *CachingGenerator) key(prompt string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + prompt))
	return "mcqbank:llm:" + hex.EncodeToString(sum[:])
}
