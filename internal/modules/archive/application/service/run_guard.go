package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"CaseVault/pkg/redis"
	"CaseVault/pkg/xerr"
	"CaseVault/pkg/zlog"
)

// RunGuard serializes mutating batch runs. The content store has no
// row-level locking, so selection and completion-marking can race across
// concurrent runs; the guard is the external serialization those loops
// require. In-process overlap is always blocked; cross-process overlap is
// blocked through a Redis lease when a client is configured.
type RunGuard struct {
	name string
	ttl  time.Duration
	busy atomic.Bool
}

func NewRunGuard(name string, ttl time.Duration) *RunGuard {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "archive_batch"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RunGuard{name: name, ttl: ttl}
}

func (g *RunGuard) key() string {
	return "casevault:runlock:" + g.name
}

// Acquire takes the guard and returns its release func. It fails fast when
// another run holds the guard instead of queueing behind it.
func (g *RunGuard) Acquire(ctx context.Context) (func(), error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, xerr.New(xerr.Conflict, "another archive run is in progress")
	}

	leased := false
	if redis.IsConnected() {
		ok, err := redis.Lock(ctx, g.key(), g.ttl)
		if err != nil {
			zlog.Warn("run lock lease unavailable, falling back to process-local guard",
				zap.String("lock", g.key()),
				zap.Error(err))
		} else if !ok {
			g.busy.Store(false)
			return nil, xerr.New(xerr.Conflict, "another archive run holds the lock")
		} else {
			leased = true
		}
	}

	release := func() {
		if leased {
			// The run may outlive its ctx; release on a fresh one.
			if err := redis.Unlock(context.Background(), g.key()); err != nil {
				zlog.Warn("run lock release failed, lease will expire by TTL",
					zap.String("lock", g.key()),
					zap.Error(err))
			}
		}
		g.busy.Store(false)
	}
	return release, nil
}
