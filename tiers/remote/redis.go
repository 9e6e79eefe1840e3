// Package remote provides a Redis-backed tier. Consistency and eviction
// are delegated to the Redis server; TTLs map to native key expiry.
package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/botirk38/embedcache/types"
)

// DefaultPrefix namespaces cache keys inside a shared Redis instance.
const DefaultPrefix = "embedcache:"

// RedisConfig configures a Redis tier backend.
type RedisConfig struct {
	// ConnectionString is a redis:// or rediss:// URL, or a bare
	// host:port address.
	ConnectionString string
	Username         string
	Password         string
	Database         int

	// Prefix overrides DefaultPrefix when non-empty.
	Prefix string

	// TTL is applied to every write; zero means no expiry.
	TTL time.Duration
}

// RedisBackend implements TierBackend on top of a Redis instance.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// parseRedisURL parses a Redis URL or bare address into client options.
func parseRedisURL(connectionString string) (*redis.Options, error) {
	if strings.HasPrefix(connectionString, "redis://") || strings.HasPrefix(connectionString, "rediss://") {
		parsedURL, err := url.Parse(connectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}

		opts := &redis.Options{
			Addr: parsedURL.Host,
		}

		if parsedURL.Scheme == "rediss" {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		if parsedURL.User != nil {
			opts.Username = parsedURL.User.Username()
			if password, ok := parsedURL.User.Password(); ok {
				opts.Password = password
			}
		}

		if parsedURL.Path != "" && parsedURL.Path != "/" {
			dbStr := strings.TrimPrefix(parsedURL.Path, "/")
			if db, err := strconv.Atoi(dbStr); err == nil {
				opts.DB = db
			}
		}

		return opts, nil
	}

	return &redis.Options{
		Addr: connectionString,
	}, nil
}

// NewRedisBackend connects to Redis and returns a tier backend. The
// connection is verified with a ping so misconfiguration fails at
// construction rather than on first lookup.
func NewRedisBackend(config RedisConfig) (*RedisBackend, error) {
	opts, err := parseRedisURL(config.ConnectionString)
	if err != nil {
		return nil, err
	}

	if config.Username != "" {
		opts.Username = config.Username
	}
	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.Database != 0 {
		opts.DB = config.Database
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &RedisBackend{
		client: client,
		prefix: prefix,
		ttl:    config.TTL,
	}, nil
}

func (b *RedisBackend) redisKey(key types.CacheKey) string {
	return b.prefix + key
}

// Set stores an entry as a JSON document with the configured TTL.
func (b *RedisBackend) Set(ctx context.Context, key types.CacheKey, entry types.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	return b.client.Set(ctx, b.redisKey(key), data, b.ttl).Err()
}

// Get retrieves an entry. Undecodable documents are deleted and reported
// as misses rather than failing the probe.
func (b *RedisBackend) Get(ctx context.Context, key types.CacheKey) (types.Entry, bool, error) {
	data, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if err == redis.Nil {
		return types.Entry{}, false, nil
	}
	if err != nil {
		return types.Entry{}, false, err
	}

	var entry types.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = b.client.Del(ctx, b.redisKey(key)).Err()
		return types.Entry{}, false, nil
	}
	return entry, true, nil
}

// Delete removes an entry.
func (b *RedisBackend) Delete(ctx context.Context, key types.CacheKey) error {
	return b.client.Del(ctx, b.redisKey(key)).Err()
}

// Contains checks for key presence.
func (b *RedisBackend) Contains(ctx context.Context, key types.CacheKey) (bool, error) {
	n, err := b.client.Exists(ctx, b.redisKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Flush removes all entries under the backend's prefix. Uses SCAN so a
// shared Redis database is not wiped wholesale.
func (b *RedisBackend) Flush(ctx context.Context) error {
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := b.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Len counts entries under the backend's prefix.
func (b *RedisBackend) Len(ctx context.Context) (int, error) {
	count := 0
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the Redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
