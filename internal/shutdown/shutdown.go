// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

// Context returns a copy of parent that is cancelled on the first
// termination signal. A second signal is left to the default handler, so
// it kills a process stuck in shutdown. Call stop to release resources.
func Context(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	go func() {
		select {
		case sig := <-ch:
			slog.Info("signal received, shutting down", "signal", sig.String())
			signal.Stop(ch)
			cancel()
		case <-ctx.Done():
			signal.Stop(ch)
		}
	}()
	return ctx, cancel
}
