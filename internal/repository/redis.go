package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/session"
)

// DefaultKeyPrefix namespaces session keys in shared key/value backends.
const DefaultKeyPrefix = "session:"

// RedisRepository stores each session as a JSON string under "<prefix><token>".
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var (
	_ Repository     = (*RedisRepository)(nil)
	_ session.Lister = (*RedisRepository)(nil)
)

// NewRedisRepository wraps client. lifetime only sizes the key TTL.
func NewRedisRepository(client redis.UniversalClient, prefix string, lifetime time.Duration) *RedisRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisRepository{client: client, prefix: prefix, ttl: retention(lifetime)}
}

// Save writes rec with the configured TTL.
func (r *RedisRepository) Save(ctx context.Context, rec session.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(rec.Token), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// FindByToken reads the record for token.
func (r *RedisRepository) FindByToken(ctx context.Context, token string) (mo.Option[session.Record], error) {
	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return mo.None[session.Record](), nil
	}
	if err != nil {
		return mo.None[session.Record](), fmt.Errorf("redis get: %w", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return mo.None[session.Record](), err
	}
	return mo.Some(rec), nil
}

// DeleteByToken removes the key and reports whether it existed.
func (r *RedisRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

// All scans every session key.
func (r *RedisRepository) All(ctx context.Context) ([]session.Record, error) {
	var records []session.Record
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		if rec, err := decodeRecord(data); err == nil {
			records = append(records, rec)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return records, nil
}

// Ping checks the connection.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + token
}
