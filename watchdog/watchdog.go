// Package watchdog reclaims the server once its only consumer disappears.
//
// The relay has no external supervisor: it is launched next to a browser tab
// and should go away with it. The watchdog watches two signals — the number
// of open connections and the time of the last inbound activity — and fires
// an orderly shutdown callback when both have been quiet for long enough. An
// open connection is proof of life even when idle.
package watchdog

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults chosen around a local browser launch: the grace period covers the
// initial page load, the idle timeout covers a reload.
const (
	DefaultInterval    = 5 * time.Second
	DefaultGracePeriod = 10 * time.Second
	DefaultIdleTimeout = 30 * time.Second
)

// Activity is a concurrent last-touched clock shared by the transports.
type Activity struct {
	last atomic.Int64
}

// NewActivity starts the clock at now.
func NewActivity() *Activity {
	a := &Activity{}
	a.Touch()
	return a
}

// Touch records inbound activity.
func (a *Activity) Touch() {
	a.last.Store(time.Now().UnixNano())
}

// Last returns the time of the most recent touch.
func (a *Activity) Last() time.Time {
	return time.Unix(0, a.last.Load())
}

// Config tunes the watchdog timers. Zero values take the defaults. The idle
// timeout should be longer than the grace period.
type Config struct {
	Interval    time.Duration
	GracePeriod time.Duration
	IdleTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	return c
}

// Watchdog periodically checks for abandonment and invokes shutdown once.
type Watchdog struct {
	cfg          Config
	clientCount  func() int
	lastActivity func() time.Time
	shutdown     func()

	startedAt time.Time
	once      sync.Once

	now func() time.Time // injectable clock
}

// New builds a watchdog. clientCount and lastActivity are sampled on every
// tick; shutdown is invoked at most once.
func New(cfg Config, clientCount func() int, lastActivity func() time.Time, shutdown func()) *Watchdog {
	return &Watchdog{
		cfg:          cfg.withDefaults(),
		clientCount:  clientCount,
		lastActivity: lastActivity,
		shutdown:     shutdown,
		now:          time.Now,
	}
}

// Run ticks until the context is cancelled or shutdown fires.
func (w *Watchdog) Run(ctx context.Context) {
	w.startedAt = w.now()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.check() {
				return
			}
		}
	}
}

// check runs one abandonment probe. Returns true once shutdown has fired.
func (w *Watchdog) check() bool {
	if w.clientCount() > 0 {
		return false
	}

	now := w.now()
	if now.Sub(w.startedAt) < w.cfg.GracePeriod {
		// Still inside the initial page-load window.
		return false
	}
	if now.Sub(w.lastActivity()) < w.cfg.IdleTimeout {
		return false
	}

	log.Printf("no clients and no activity for %s, shutting down", w.cfg.IdleTimeout)
	w.once.Do(w.shutdown)
	return true
}
