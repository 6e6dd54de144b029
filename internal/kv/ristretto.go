package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

const defaultBufferItems = 64

// ristrettoStore keeps values in a local Ristretto cache.
// Writes are serialized so Delete can report existence exactly once.
type ristrettoStore struct {
	cache  *ristretto.Cache[string, []byte]
	log    zerolog.Logger
	closed atomic.Bool
	mu     sync.Mutex
}

var _ Store = (*ristrettoStore)(nil)

func openRistretto(cfg RistrettoConfig) (*ristrettoStore, error) {
	log := logger().With().Str("backend", "ristretto").Logger()

	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = defaultBufferItems
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Msg("ristretto store created")

	return &ristrettoStore{cache: cache, log: log}, nil
}

func (r *ristrettoStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}

	value, found := r.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put waits for Ristretto's write buffer to drain so the value is readable
// on return. Values refused by the admission policy yield ErrRejected.
func (r *ristrettoStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return ErrClosed
	}

	stored := append([]byte(nil), value...)
	if !r.cache.SetWithTTL(key, stored, int64(len(stored)), ttl) {
		return ErrRejected
	}
	r.cache.Wait()

	if _, ok := r.cache.Get(key); !ok {
		r.log.Warn().Int("size", len(value)).Msg("ristretto dropped value on admission")
		return ErrRejected
	}
	return nil
}

func (r *ristrettoStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return false, ErrClosed
	}

	_, existed := r.cache.Get(key)
	r.cache.Del(key)
	r.cache.Wait()
	return existed, nil
}

func (r *ristrettoStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Swap(true) {
		return nil
	}
	r.cache.Wait()
	r.cache.Close()
	r.log.Debug().Msg("ristretto store closed")
	return nil
}
