// Package park keeps a finished bootstrap process alive until it is terminated.
package park

import (
	"context"
	"time"

	"github.com/systmms/vaultboot/internal/logging"
)

// HeartbeatInterval is how often a parked process logs at debug level
const HeartbeatInterval = time.Minute

// Forever blocks until ctx is done. There is no work to do while parked;
// the debug heartbeat only shows the process is still alive.
func Forever(ctx context.Context, logger *logging.Logger) {
	Until(ctx, logger, HeartbeatInterval)
}

// Until is Forever with a configurable heartbeat interval.
func Until(ctx context.Context, logger *logging.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	parkedAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Leaving park after %s", time.Since(parkedAt).Round(time.Second))
			return

		case <-ticker.C:
			logger.Debug("Still parked (%s)", time.Since(parkedAt).Round(time.Second))
		}
	}
}
