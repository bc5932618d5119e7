package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by the catalog store, the pgx pool and the slot
// storages.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes a dependency and prefixes failures with what.
func PingCheck(what string, p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, what)
		}
		return nil
	}
}

// GoroutineCountCheck catches goroutine leaks, e.g. stuck session locks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any recent stop-the-world pause exceeds
// threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		if worst := longestPause(stats.Pause); worst > threshold {
			return errors.Errorf("GC pause %s exceeds threshold %s", worst, threshold)
		}
		return nil
	}
}

func longestPause(pauses []time.Duration) time.Duration {
	var top time.Duration
	for _, p := range pauses {
		top = max(top, p)
	}
	return top
}
