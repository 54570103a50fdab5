package dashboard

import (
	"context"

	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// Bootstrap performs the local-first boot. The local cache is loaded and
// painted before it returns; the remote sync runs in the background and
// its outcome is delivered on the returned channel. A remote-authoritative
// result repaints the dashboard.
func (c *Controller) Bootstrap(ctx context.Context) <-chan SyncOutcome {
	c.store.Load(ctx)
	c.refresh.Refresh(ctx)

	out := make(chan SyncOutcome, 1)
	if !c.store.Persistence().HasRemote() {
		out <- SyncLocalOnly
		close(out)
		return out
	}
	go func() {
		defer close(out)
		outcome := c.store.Sync(ctx)
		if outcome == SyncRemoteAuthoritative {
			if res := c.refresh.Refresh(ctx); res.Skipped {
				c.refresh.Trigger()
			}
		}
		log.Info(ctx, "dashboard bootstrap finished", j.KV("outcome", outcome))
		out <- outcome
	}()
	return out
}
