package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"backend-runcoach/internal/plan"
	"backend-runcoach/internal/session"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) NewTicker(time.Duration) session.Ticker {
	return &fakeTicker{c: make(chan time.Time)}
}

// fakeTicker never fires; tests drive ticks through the controller.
type fakeTicker struct {
	c chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               {}

type recordingHub struct {
	mu        sync.Mutex
	payloads  map[string][][]byte
	forgotten []string
}

func newRecordingHub() *recordingHub {
	return &recordingHub{payloads: map[string][][]byte{}}
}

func (h *recordingHub) Broadcast(runID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads[runID] = append(h.payloads[runID], payload)
}

func (h *recordingHub) Forget(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forgotten = append(h.forgotten, runID)
}

func (h *recordingHub) count(runID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.payloads[runID])
}

func (h *recordingHub) last(runID string) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.payloads[runID]
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

type stubPlans map[string]plan.Plan

func (s stubPlans) GetPlan(_ context.Context, ownerID, id string) (plan.Plan, error) {
	p, ok := s[id]
	if !ok || p.OwnerID != ownerID {
		return plan.Plan{}, plan.ErrPlanNotFound
	}
	return p, nil
}

type harness struct {
	clock    *fakeClock
	hub      *recordingHub
	registry *Registry
	svc      *Service
	mock     pgxmock.PgxPoolIface
}

func newHarness(t *testing.T, plans PlanLookup) *harness {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	clock := newFakeClock()
	hub := newRecordingHub()
	registry := NewRegistry(context.Background(), clock, time.Second, hub)
	t.Cleanup(registry.CloseAll)

	return &harness{
		clock:    clock,
		hub:      hub,
		registry: registry,
		svc:      NewService(mock, registry, plans, nil),
		mock:     mock,
	}
}

// tick advances the fake clock by d and fires one controller tick for user.
func (h *harness) tick(t *testing.T, userID string, d time.Duration) {
	t.Helper()
	h.clock.Advance(d)
	e, ok := h.registry.get(userID)
	if !ok {
		t.Fatalf("no live run for %s", userID)
	}
	e.ctrl.Tick()
}

func pgxmockResult() pgconn.CommandTag {
	return pgxmock.NewResult("INSERT", 1)
}

func pgxmockRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "user_id", "type", "plan_id", "started_at", "ended_at",
		"distance_km", "elapsed_sec", "pause_sec", "pace_min_per_km", "calories"})
}
