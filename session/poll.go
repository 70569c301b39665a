package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is used by table-backed drivers that have no change feed.
const DefaultPollInterval = time.Second

// FetchFunc reads the current record for a key. found is false when no row exists.
type FetchFunc func(ctx context.Context) (rec Record, found bool, err error)

// PollChanges turns a FetchFunc into a Watch subscription for drivers whose
// storage has no push notifications. A change is reported whenever the
// record's revision moves and the writer is not self.
func PollChanges(ctx context.Context, interval time.Duration, self string, fetch FetchFunc, fn func(Change)) (func(), error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	initial, found, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	lastRev := ""
	if found {
		lastRev = initial.Rev
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}

			rec, found, err := fetch(runCtx)
			if err != nil {
				if runCtx.Err() != nil {
					return
				}
				log.Warn().Err(err).Str("component", "session").Msg("poll watch: fetch failed")
				continue
			}
			if !found || rec.Rev == lastRev {
				continue
			}
			lastRev = rec.Rev
			if rec.Writer == self {
				continue
			}
			fn(rec.Change())
		}
	}()

	return cancel, nil
}
