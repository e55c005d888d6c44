package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"backend-runcoach/internal/metrics"
	"backend-runcoach/internal/plan"
	"backend-runcoach/internal/session"

	"goa.design/clue/log"
)

// Broadcaster publishes live run payloads to watchers.
type Broadcaster interface {
	Broadcast(runID string, payload []byte)
	Forget(runID string)
}

// Registry holds the live run of every user. Each run gets its own Store and
// Controller; the registry publishes every metrics or status change of a
// run to the broadcaster.
type Registry struct {
	ctx      context.Context
	clock    session.Clock
	interval time.Duration
	hub      Broadcaster

	mu        sync.RWMutex
	runs      map[string]*entry
	byRun     map[string]*entry
	onRelease []func(userID string)
}

type entry struct {
	userID      string
	runID       string
	store       *session.Store
	ctrl        *session.Controller
	plan        *plan.Plan
	unsubscribe func()
}

// NewRegistry creates an empty registry. A nil clock uses the system clock
// and hub may be nil.
func NewRegistry(ctx context.Context, clock session.Clock, interval time.Duration, hub Broadcaster) *Registry {
	if clock == nil {
		clock = session.SystemClock{}
	}
	return &Registry{
		ctx:      ctx,
		clock:    clock,
		interval: interval,
		hub:      hub,
		runs:     map[string]*entry{},
		byRun:    map[string]*entry{},
	}
}

// OnRelease registers fn to run with the owner's id whenever a live run is
// removed.
func (r *Registry) OnRelease(fn func(userID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRelease = append(r.onRelease, fn)
}

// open installs data as the live run of userID, closing any previous one.
func (r *Registry) open(userID string, data session.Data, p *plan.Plan) *entry {
	store := session.NewStore(r.clock)
	e := &entry{
		userID: userID,
		runID:  data.ID,
		store:  store,
		ctrl:   session.NewController(store, r.clock, r.interval),
		plan:   p,
	}
	e.unsubscribe = store.Subscribe(func(ev session.Event) { r.publish(e, ev) })

	r.mu.Lock()
	prev := r.runs[userID]
	if prev != nil {
		delete(r.byRun, prev.runID)
	}
	r.runs[userID] = e
	r.byRun[e.runID] = e
	r.mu.Unlock()

	if prev != nil {
		r.shutdown(prev)
	}
	store.SetSessionData(data)
	return e
}

// get returns the live run of userID.
func (r *Registry) get(userID string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.runs[userID]
	return e, ok
}

// ownerOf returns the user whose live run has id runID.
func (r *Registry) ownerOf(runID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byRun[runID]
	if !ok {
		return "", false
	}
	return e.userID, true
}

// Close clears and removes the live run of userID. It reports whether there
// was one.
func (r *Registry) Close(userID string) bool {
	return r.release(userID, nil)
}

// release removes the live run of userID when it is still want, or any run
// when want is nil.
func (r *Registry) release(userID string, want *entry) bool {
	r.mu.Lock()
	e, ok := r.runs[userID]
	if ok && want != nil && e != want {
		ok = false
	}
	if ok {
		delete(r.runs, userID)
		delete(r.byRun, e.runID)
	}
	r.mu.Unlock()

	if ok {
		r.shutdown(e)
	}
	return ok
}

// CloseAll stops every live run.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	runs := r.runs
	r.runs = map[string]*entry{}
	r.byRun = map[string]*entry{}
	r.mu.Unlock()

	for _, e := range runs {
		r.shutdown(e)
	}
}

// Len returns the number of live runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func (r *Registry) shutdown(e *entry) {
	data, ok := e.store.Snapshot()
	e.ctrl.Close()
	e.unsubscribe()
	e.store.ClearSession()
	if ok && r.hub != nil {
		r.hub.Forget(data.ID)
	}

	r.mu.RLock()
	hooks := r.onRelease
	r.mu.RUnlock()
	for _, fn := range hooks {
		fn(e.userID)
	}
}

// view renders the client representation of a run.
func (e *entry) view(data session.Data) LiveRun {
	out := LiveRun{
		ID:            data.ID,
		UserID:        e.userID,
		Type:          data.Type,
		PlanID:        data.PlanID,
		Status:        data.Status,
		StartTime:     data.StartTime,
		TotalPauseSec: int64(data.TotalPauseTime / time.Second),
		LocationCount: len(data.Locations),
		Metrics:       data.CurrentMetrics,
	}
	if e.plan != nil {
		progress := e.plan.Evaluate(metrics.DistanceKm(data.Locations), e.ctrl.Elapsed())
		out.Progress = &progress
	}
	return out
}

// current returns the view of the run held by e.
func (e *entry) current() (LiveRun, bool) {
	data, ok := e.store.Snapshot()
	if !ok {
		return LiveRun{}, false
	}
	return e.view(data), true
}

func (r *Registry) publish(e *entry, ev session.Event) {
	if r.hub == nil {
		return
	}
	switch ev.Kind {
	case session.EventSet, session.EventTransition, session.EventMetrics, session.EventLocation:
	default:
		return
	}
	payload, err := json.Marshal(e.view(ev.Data))
	if err != nil {
		log.Error(r.ctx, err, log.KV{K: "msg", V: "encode live run"}, log.KV{K: "run_id", V: ev.Data.ID})
		return
	}
	r.hub.Broadcast(ev.Data.ID, payload)
}
