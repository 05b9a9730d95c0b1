// Package cache keeps finished answers in Redis so repeated questions
// skip the model pipeline entirely. Entries are keyed by the normalized
// question, a fingerprint of the schema context, and the model name, so
// a schema reload or model switch naturally misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "synthio:answer:"

// Answer is the cached slice of a finished run.
type Answer struct {
	FinalResponse string `json:"final_response"`
	SQLQuery      string `json:"sql_query"`
	RowCount      int    `json:"row_count"`
}

// AnswerCache stores answers in Redis with a fixed TTL.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects an answer cache to the Redis instance at addr.
func New(addr string, db int, ttl time.Duration) *AnswerCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return NewWithClient(client, ttl)
}

// NewWithClient wraps an existing Redis client, mainly for tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *AnswerCache {
	return &AnswerCache{client: client, ttl: ttl}
}

// Key derives the cache key for a question asked against a specific
// schema fingerprint and model. The question is normalized so casing
// and stray whitespace do not defeat the cache.
func Key(query, schemaFingerprint, model string) string {
	h := sha256.New()
	h.Write([]byte(normalize(query)))
	h.Write([]byte{0})
	h.Write([]byte(schemaFingerprint))
	h.Write([]byte{0})
	h.Write([]byte(model))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// normalize lowercases the question and collapses whitespace runs.
func normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get looks up a cached answer. A miss is (nil, false, nil); errors are
// reserved for Redis being unreachable or a corrupt entry.
func (c *AnswerCache) Get(ctx context.Context, key string) (*Answer, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var answer Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, false, fmt.Errorf("decoding cached answer: %w", err)
	}
	return &answer, true, nil
}

// Set stores an answer under key for the configured TTL.
func (c *AnswerCache) Set(ctx context.Context, key string, answer *Answer) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (c *AnswerCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (c *AnswerCache) Close() error {
	return c.client.Close()
}
