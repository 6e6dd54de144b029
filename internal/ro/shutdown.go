// Package ro wires OS shutdown signals into samber/ro observables.
package ro

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/ro"
)

// ShutdownSignals are the OS signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// GracefulShutdown returns an Observable that emits the first of signals
// (ShutdownSignals when none are given) and completes. Signal delivery is
// registered immediately, before anyone subscribes.
func GracefulShutdown(signals ...os.Signal) ro.Observable[os.Signal] {
	if len(signals) == 0 {
		signals = ShutdownSignals
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			}
		}()

		return func() {
			signal.Stop(ch)
		}
	})
}

// WaitForShutdown blocks until a shutdown signal arrives or ctx is done.
func WaitForShutdown(ctx context.Context, signals ...os.Signal) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, GracefulShutdown(signals...))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}

// OnShutdown calls callback when a shutdown signal arrives. Unsubscribe to
// cancel.
func OnShutdown(ctx context.Context, callback func(os.Signal), signals ...os.Signal) ro.Subscription {
	return GracefulShutdown(signals...).SubscribeWithContext(ctx, ro.OnNextWithContext(func(_ context.Context, sig os.Signal) {
		callback(sig)
	}))
}

// ServeUntilShutdown runs serve and blocks until it returns on its own, a
// shutdown signal arrives, or ctx is done. In the latter two cases stop is
// called with a context bounded by grace and the serve error is collected.
func ServeUntilShutdown(
	ctx context.Context,
	serve func() error,
	stop func(context.Context) error,
	grace time.Duration,
	signals ...os.Signal,
) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	received := make(chan os.Signal, 1)
	sub := OnShutdown(waitCtx, func(sig os.Signal) { received <- sig }, signals...)
	defer sub.Unsubscribe()

	served := make(chan error, 1)
	go func() { served <- serve() }()

	select {
	case err := <-served:
		return err
	case sig := <-received:
		log.Info().Str("signal", sig.String()).Msg("shutting down...")
	case <-ctx.Done():
		log.Info().Msg("shutting down...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), grace)
	defer stopCancel()
	stopErr := stop(stopCtx)
	return errors.Join(stopErr, <-served)
}
