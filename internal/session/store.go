// Package session holds the state of the active run and the timer that
// measures it.
//
// A Store is the single source of truth for one run. It validates every
// status change against the run state machine and silently ignores calls
// that are not legal from the current status. A Controller subscribes to a
// Store, drives a periodic tick while the run is running and pushes the
// recomputed metrics back into it.
package session

import (
	"slices"
	"sync"
	"time"

	"backend-runcoach/internal/metrics"
)

// Data is the state of one run.
type Data struct {
	ID             string
	Type           Type
	PlanID         string
	Status         Status
	StartTime      time.Time
	TotalPauseTime time.Duration
	Locations      []metrics.Location
	CurrentMetrics metrics.Snapshot
}

func (d Data) clone() Data {
	if d.Locations != nil {
		d.Locations = append([]metrics.Location(nil), d.Locations...)
	}
	return d
}

// EventKind identifies what changed in a Store.
type EventKind int

const (
	EventSet EventKind = iota
	EventTransition
	EventMetrics
	EventLocation
	EventClear
)

// Event describes one applied mutation. Data is a copy taken right after the
// mutation; it is the zero value for EventClear.
type Event struct {
	Kind EventKind
	From Status
	To   Status
	At   time.Time
	Data Data
}

// Listener receives store events. Events reach listeners in the order their
// mutations were applied, and each mutating call returns only after its own
// event was delivered. Listeners run outside the store lock and may read the
// store, but must not mutate it.
type Listener func(Event)

// Deriver recomputes the location-derived metrics of a run. It is called
// under the store lock, so its result always matches the stored samples.
type Deriver func(locs []metrics.Location, cur metrics.Snapshot) metrics.Snapshot

type subscription struct {
	id int
	fn Listener
}

type pendingEvent struct {
	turn      uint64
	ev        Event
	listeners []Listener
}

// Store holds the active run.
type Store struct {
	mu        sync.Mutex
	clock     Clock
	data      *Data
	pausedAt  time.Time
	listeners []subscription
	nextID    int
	derive    Deriver
	issued    uint64

	turnMu    sync.Mutex
	turn      *sync.Cond
	delivered uint64
}

// NewStore creates an empty store. A nil clock uses the system clock.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Store{clock: clock}
	s.turn = sync.NewCond(&s.turnMu)
	return s
}

// SetDeriver installs fn to recompute metrics whenever a sample is appended.
// A nil fn leaves metrics untouched on append.
func (s *Store) SetDeriver(fn Deriver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derive = fn
}

// Subscribe registers fn for every subsequent event and returns a func that
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a copy of the current run and whether one is installed.
func (s *Store) Snapshot() (Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return Data{}, false
	}
	return s.data.clone(), true
}

// SetSessionData installs a new run, replacing any prior one.
func (s *Store) SetSessionData(data Data) {
	s.mu.Lock()
	d := data.clone()
	s.data = &d
	s.pausedAt = time.Time{}
	p := s.queueLocked(Event{Kind: EventSet, To: d.Status, At: s.clock.Now(), Data: d.clone()})
	s.mu.Unlock()

	s.deliver(p)
}

// UpdateCurrentMetrics replaces the metrics of the current run. It never
// touches status, locations or timers.
func (s *Store) UpdateCurrentMetrics(m metrics.Snapshot) bool {
	return s.updateMetrics(func(metrics.Snapshot) metrics.Snapshot { return m })
}

// updateMetrics applies fn to the current metrics atomically so that the
// timer and the location recomputation cannot overwrite each other's fields.
func (s *Store) updateMetrics(fn func(metrics.Snapshot) metrics.Snapshot) bool {
	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return false
	}
	s.data.CurrentMetrics = fn(s.data.CurrentMetrics)
	p := s.queueLocked(Event{Kind: EventMetrics, From: s.data.Status, To: s.data.Status, At: s.clock.Now(), Data: s.data.clone()})
	s.mu.Unlock()

	s.deliver(p)
	return true
}

// StartSession moves a ready run to running and fixes its start time.
func (s *Store) StartSession() bool {
	return s.transition(StatusRunning, func(d *Data, now time.Time) {
		if d.StartTime.IsZero() {
			d.StartTime = now
		}
	}, StatusReady)
}

// PauseSession moves a running run to paused.
func (s *Store) PauseSession() bool {
	return s.transition(StatusPaused, func(_ *Data, now time.Time) {
		s.pausedAt = now
	}, StatusRunning)
}

// ResumeSession moves a paused run back to running and credits the pause.
func (s *Store) ResumeSession() bool {
	return s.transition(StatusRunning, func(d *Data, now time.Time) {
		if !s.pausedAt.IsZero() {
			if paused := now.Sub(s.pausedAt); paused > 0 {
				d.TotalPauseTime += paused
			}
		}
		s.pausedAt = time.Time{}
	}, StatusPaused)
}

// StopSession ends a running or paused run.
func (s *Store) StopSession() bool {
	return s.transition(StatusStopped, func(*Data, time.Time) {
		s.pausedAt = time.Time{}
	}, StatusRunning, StatusPaused)
}

// ClearSession discards the current run.
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.data = nil
	s.pausedAt = time.Time{}
	p := s.queueLocked(Event{Kind: EventClear, At: s.clock.Now()})
	s.mu.Unlock()

	s.deliver(p)
}

// AppendLocation records a GPS sample and, when a Deriver is installed,
// recomputes the metrics from every stored sample in the same critical
// section. Samples are only accepted while the run is running.
func (s *Store) AppendLocation(loc metrics.Location) bool {
	s.mu.Lock()
	if s.data == nil || s.data.Status != StatusRunning {
		s.mu.Unlock()
		return false
	}
	now := s.clock.Now()
	if loc.Timestamp.IsZero() {
		loc.Timestamp = now
	}
	s.data.Locations = append(s.data.Locations, loc)
	if s.derive != nil {
		s.data.CurrentMetrics = s.derive(s.data.Locations, s.data.CurrentMetrics)
	}
	p := s.queueLocked(Event{Kind: EventLocation, From: StatusRunning, To: StatusRunning, At: now, Data: s.data.clone()})
	s.mu.Unlock()

	s.deliver(p)
	return true
}

// transition applies a status change when the run is currently in one of
// from and the edge is legal. apply runs under the lock before the status
// changes.
func (s *Store) transition(to Status, apply func(*Data, time.Time), from ...Status) bool {
	s.mu.Lock()
	if s.data == nil || !slices.Contains(from, s.data.Status) || !CanTransition(s.data.Status, to) {
		s.mu.Unlock()
		return false
	}
	now := s.clock.Now()
	prev := s.data.Status
	apply(s.data, now)
	s.data.Status = to
	p := s.queueLocked(Event{Kind: EventTransition, From: prev, To: to, At: now, Data: s.data.clone()})
	s.mu.Unlock()

	s.deliver(p)
	return true
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		out[i] = sub.fn
	}
	return out
}

// queueLocked assigns ev the next delivery turn. The caller holds s.mu and
// passes the result to deliver once the lock is released.
func (s *Store) queueLocked(ev Event) pendingEvent {
	p := pendingEvent{turn: s.issued, ev: ev, listeners: s.listenersLocked()}
	s.issued++
	return p
}

// deliver waits for the turn of p, notifies its listeners and hands the turn
// to the next event.
func (s *Store) deliver(p pendingEvent) {
	s.turnMu.Lock()
	for s.delivered != p.turn {
		s.turn.Wait()
	}
	s.turnMu.Unlock()

	defer func() {
		s.turnMu.Lock()
		s.delivered++
		s.turn.Broadcast()
		s.turnMu.Unlock()
	}()
	for _, fn := range p.listeners {
		fn(p.ev)
	}
}
