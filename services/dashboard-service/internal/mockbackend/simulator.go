package mockbackend

import (
	"context"
	"time"
)

// Simulate advances the store's checker every interval until ctx is done.
// A non-positive interval disables the simulation.
func Simulate(ctx context.Context, store *Store, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Step()
		}
	}
}
