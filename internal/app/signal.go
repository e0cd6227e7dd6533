package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context cancelled on SIGINT/SIGTERM so a run in
// flight can finish its accounting (reports, manifest, view refresh) before
// the process exits. A second signal aborts immediately.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-signals:
			slog.Info("received signal, graceful shutdown", "sig", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(signals)
			return
		}
		sig := <-signals
		slog.Error("received second signal, aborting", "sig", sig)
		os.Exit(1)
	}()
	return ctx, cancel
}
