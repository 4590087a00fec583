package app

import (
	"context"
	"log"
	"time"

	"github.com/parleyhq/parley/internal/platform/timeouts"
)

// RunInviteSweeper periodically expires past-due pending invites until the
// context is cancelled. Run it in its own goroutine.
func (a *App) RunInviteSweeper(ctx context.Context) {
	ticker := time.NewTicker(timeouts.InviteSweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := a.store.ExpirePendingInvites(ctx, a.now())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("invite sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("invite sweep expired %d invite(s)", expired)
			}
		}
	}
}
