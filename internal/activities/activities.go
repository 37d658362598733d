// Package activities contains the Temporal activity implementations the
// workflow dispatches to. Activities are the only place side effects happen:
// model API calls, child processes, MCP round trips, and file reads all live
// here, identified by stable names so recorded results replay cleanly.
package activities

import (
	"context"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"
)

// heartbeatInterval keeps heartbeats comfortably under the 30s heartbeat
// timeout the workflow configures for long-running activities.
const heartbeatInterval = 10 * time.Second

// heartbeatEvery records an immediate heartbeat and then keeps heartbeating
// on a fixed interval until the returned stop function is called or the
// context ends.
func heartbeatEvery(ctx context.Context, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	activity.RecordHeartbeat(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				activity.RecordHeartbeat(ctx)
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
