package repository

import (
	"context"
	"errors"
	"time"

	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/kv"
	"github.com/omarluq/authgate/internal/session"
)

// KVRepository stores sessions in a kv.Store under "<prefix><token>".
type KVRepository struct {
	store  kv.Store
	prefix string
	ttl    time.Duration
}

var (
	_ Repository = (*KVRepository)(nil)
	_ kv.Pinger  = (*KVRepository)(nil)
)

// NewKVRepository wraps store. lifetime is the session duration and only
// sizes the backend TTL.
func NewKVRepository(store kv.Store, prefix string, lifetime time.Duration) *KVRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &KVRepository{store: store, prefix: prefix, ttl: retention(lifetime)}
}

// Save writes rec.
func (r *KVRepository) Save(ctx context.Context, rec session.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, r.prefix+rec.Token, data, r.ttl)
}

// FindByToken reads the record for token.
func (r *KVRepository) FindByToken(ctx context.Context, token string) (mo.Option[session.Record], error) {
	data, err := r.store.Get(ctx, r.prefix+token)
	if errors.Is(err, kv.ErrNotFound) {
		return mo.None[session.Record](), nil
	}
	if err != nil {
		return mo.None[session.Record](), err
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return mo.None[session.Record](), err
	}
	return mo.Some(rec), nil
}

// DeleteByToken removes the record for token.
func (r *KVRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	return r.store.Delete(ctx, r.prefix+token)
}

// Ping checks the underlying store when it supports it.
func (r *KVRepository) Ping(ctx context.Context) error {
	if p, ok := r.store.(kv.Pinger); ok {
		return p.Ping(ctx)
	}
	return ctx.Err()
}

// Close closes the underlying store.
func (r *KVRepository) Close() error {
	return r.store.Close()
}
