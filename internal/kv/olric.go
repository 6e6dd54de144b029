package kv

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olric-data/olric"
	olricconfig "github.com/olric-data/olric/config"
	"github.com/rs/zerolog"
)

const (
	defaultDMapName     = "authgate-sessions"
	defaultStartTimeout = 10 * time.Second
	pingKey             = "__authgate_ping__"
)

// olricStore keeps values in an Olric distributed map.
// db is nil in client mode.
type olricStore struct {
	db     *olric.Olric
	client olric.Client
	dmap   olric.DMap
	log    zerolog.Logger
	mu     sync.RWMutex
	closed atomic.Bool
}

var (
	_ Store  = (*olricStore)(nil)
	_ Pinger = (*olricStore)(nil)
)

func splitBindAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

func openOlric(ctx context.Context, cfg *OlricConfig) (*olricStore, error) {
	lg := logger().With().Str("backend", "olric").Logger()

	name := cfg.DMapName
	if name == "" {
		name = defaultDMapName
	}

	if cfg.Embedded {
		return startEmbeddedOlric(ctx, cfg, name, lg)
	}
	return dialOlric(ctx, cfg, name, lg)
}

func startEmbeddedOlric(ctx context.Context, cfg *OlricConfig, name string, lg zerolog.Logger) (*olricStore, error) {
	env := cfg.Environment
	if env == "" {
		env = "local"
	}
	c := olricconfig.New(env)

	host, port := splitBindAddr(cfg.BindAddr)
	c.BindAddr = host
	if port > 0 {
		c.BindPort = port
	}
	if len(cfg.Peers) > 0 {
		c.Peers = cfg.Peers
	}
	c.LogOutput = io.Discard
	c.Logger = log.New(io.Discard, "", 0)

	ready := make(chan struct{})
	c.Started = func() { close(ready) }

	db, err := olric.New(c)
	if err != nil {
		return nil, err
	}

	startErr := make(chan error, 1)
	go func() {
		if err := db.Start(); err != nil {
			startErr <- err
		}
	}()

	timeout := cfg.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}
	startCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-ready:
	case err := <-startErr:
		return nil, err
	case <-startCtx.Done():
		_ = db.Shutdown(context.Background())
		return nil, errors.New("kv: embedded olric node did not start in time")
	}

	client := db.NewEmbeddedClient()
	dm, err := client.NewDMap(name)
	if err != nil {
		if shutdownErr := db.Shutdown(context.Background()); shutdownErr != nil {
			lg.Error().Err(shutdownErr).Msg("olric shutdown after dmap failure")
		}
		return nil, err
	}

	lg.Info().
		Str("bind_addr", host).
		Int("bind_port", port).
		Str("dmap", name).
		Int("peers", len(cfg.Peers)).
		Msg("olric embedded node started")

	return &olricStore{db: db, client: client, dmap: dm, log: lg}, nil
}

func dialOlric(ctx context.Context, cfg *OlricConfig, name string, lg zerolog.Logger) (*olricStore, error) {
	client, err := olric.NewClusterClient(cfg.Addresses)
	if err != nil {
		return nil, err
	}

	dm, err := client.NewDMap(name)
	if err != nil {
		if closeErr := client.Close(ctx); closeErr != nil {
			lg.Error().Err(closeErr).Msg("olric client close after dmap failure")
		}
		return nil, err
	}

	lg.Info().Strs("addresses", cfg.Addresses).Str("dmap", name).Msg("olric cluster connected")
	return &olricStore{client: client, dmap: dm, log: lg}, nil
}

func (o *olricStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := o.begin(ctx); err != nil {
		return nil, err
	}
	defer o.mu.RUnlock()

	resp, err := o.dmap.Get(ctx, key)
	if errors.Is(err, olric.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return resp.Byte()
}

func (o *olricStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := o.begin(ctx); err != nil {
		return err
	}
	defer o.mu.RUnlock()

	stored := append([]byte(nil), value...)
	if ttl > 0 {
		return o.dmap.Put(ctx, key, stored, olric.EX(ttl))
	}
	return o.dmap.Put(ctx, key, stored)
}

func (o *olricStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := o.begin(ctx); err != nil {
		return false, err
	}
	defer o.mu.RUnlock()

	n, err := o.dmap.Delete(ctx, key)
	if errors.Is(err, olric.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping reads a sentinel key; a miss proves the cluster answered.
func (o *olricStore) Ping(ctx context.Context) error {
	_, err := o.Get(ctx, pingKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (o *olricStore) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed.Swap(true) {
		return nil
	}

	ctx := context.Background()
	if err := o.dmap.Close(ctx); err != nil {
		o.log.Debug().Err(err).Msg("olric dmap close")
	}
	if o.db != nil {
		return o.db.Shutdown(ctx)
	}
	return o.client.Close(ctx)
}

// begin checks ctx and the closed flag and takes the read lock.
// The caller releases it.
func (o *olricStore) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.RLock()
	if o.closed.Load() {
		o.mu.RUnlock()
		return ErrClosed
	}
	return nil
}
