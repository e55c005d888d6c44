package session

import (
	"sync"
	"time"

	"backend-runcoach/internal/metrics"
)

// DefaultTickInterval is how often a running run refreshes its time.
const DefaultTickInterval = time.Second

// Controller accumulates running time for the run held by a Store and
// publishes the formatted metrics back into it.
//
// Paused time is never added to the accumulator: the ticker stops when the
// run leaves running and lastTick is cleared, so the next tick after a resume
// measures from the resume instant.
type Controller struct {
	store       *Store
	clock       Clock
	interval    time.Duration
	unsubscribe func()

	mu       sync.Mutex
	elapsed  time.Duration
	lastTick *time.Time
	ticker   Ticker
	done     chan struct{}
}

// NewController attaches a controller to store. A nil clock uses the system
// clock and a non-positive interval uses DefaultTickInterval.
func NewController(store *Store, clock Clock, interval time.Duration) *Controller {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	c := &Controller{store: store, clock: clock, interval: interval}
	c.unsubscribe = store.Subscribe(c.handle)
	store.SetDeriver(c.derive)
	return c
}

// Close detaches the controller and stops its ticker.
func (c *Controller) Close() {
	c.unsubscribe()
	c.store.SetDeriver(nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Elapsed returns the running time accumulated so far.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Running reports whether the periodic tick is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticker != nil
}

// Tick advances the accumulator by the time since the previous tick and
// refreshes the time fields of the run's metrics. It is a no-op when the run
// is not running.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.lastTick == nil {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	if delta := now.Sub(*c.lastTick); delta > 0 {
		c.elapsed += delta
	}
	c.lastTick = &now
	elapsed := c.elapsed
	c.mu.Unlock()

	c.store.updateMetrics(func(cur metrics.Snapshot) metrics.Snapshot {
		cur.Time = metrics.FormatElapsed(elapsed)
		return cur
	})
}

func (c *Controller) handle(ev Event) {
	switch ev.Kind {
	case EventTransition:
		c.onTransition(ev)
	case EventSet:
		c.reset()
		if ev.To == StatusRunning {
			c.mu.Lock()
			c.startLocked(ev.At)
			c.mu.Unlock()
		}
	case EventClear:
		c.reset()
	}
}

func (c *Controller) onTransition(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.To {
	case StatusRunning:
		if ev.From == StatusReady {
			c.elapsed = 0
		}
		c.startLocked(ev.At)
	case StatusPaused, StatusStopped:
		c.stopLocked()
	}
}

// derive computes the metrics of every sample of the run against the current
// accumulator. The store calls it while holding its lock; c.mu is always
// taken after the store lock, never before.
func (c *Controller) derive(locs []metrics.Location, _ metrics.Snapshot) metrics.Snapshot {
	return metrics.Compute(locs, c.Elapsed())
}

func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.elapsed = 0
}

func (c *Controller) startLocked(at time.Time) {
	if at.IsZero() {
		at = c.clock.Now()
	}
	c.lastTick = &at
	if c.ticker != nil {
		return
	}
	t := c.clock.NewTicker(c.interval)
	done := make(chan struct{})
	c.ticker, c.done = t, done

	go func() {
		for {
			select {
			case <-t.C():
				c.Tick()
			case <-done:
				return
			}
		}
	}()
}

func (c *Controller) stopLocked() {
	c.lastTick = nil
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.done)
	c.ticker, c.done = nil, nil
}
