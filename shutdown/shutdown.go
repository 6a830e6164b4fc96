// Package shutdown maps termination signals to context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
)

// Context returns a context canceled on the platform's termination
// signals. A second signal exits the process immediately.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	notify(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
			signal.Stop(ch)
			return
		}
		<-ch
		os.Exit(1)
	}()

	return ctx, cancel
}
