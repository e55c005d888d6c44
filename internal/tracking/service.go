package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"backend-runcoach/internal/db"
	"backend-runcoach/internal/metrics"
	"backend-runcoach/internal/plan"
	"backend-runcoach/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"goa.design/clue/log"
)

var (
	ErrNoActiveRun        = errors.New("no active run")
	ErrTransitionRejected = errors.New("transition not allowed from the current status")
	ErrRunInProgress      = errors.New("a run is already in progress")
	ErrInvalidRun         = errors.New("invalid run")
	ErrInvalidLocation    = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
	ErrNotRunning         = errors.New("locations are only accepted while running")
	ErrStorageUnavailable = db.ErrUnavailable
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PlanLookup resolves the plan a target or guided run follows.
type PlanLookup interface {
	GetPlan(ctx context.Context, ownerID, id string) (plan.Plan, error)
}

// Service is the action surface of live runs. Actions that the run state
// machine does not allow from the current status return
// ErrTransitionRejected and leave the run untouched.
type Service struct {
	db       db.Querier
	registry *Registry
	plans    PlanLookup
	inst     instruments

	createMu sync.Mutex
}

// NewService creates the service. q and plans may be nil, in which case
// stopped runs are not persisted and target/guided runs cannot be created.
func NewService(q db.Querier, registry *Registry, plans PlanLookup, meter metric.Meter) *Service {
	return &Service{
		db:       q,
		registry: registry,
		plans:    plans,
		inst:     newInstruments(meter),
	}
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRunRequest) (LiveRun, error) {
	typ, err := session.ParseType(req.Type)
	if err != nil {
		return LiveRun{}, fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}

	var p *plan.Plan
	switch {
	case typ.NeedsPlan() && req.PlanID == "":
		return LiveRun{}, fmt.Errorf("%w: %s runs need a plan_id", ErrInvalidRun, typ)
	case !typ.NeedsPlan() && req.PlanID != "":
		return LiveRun{}, fmt.Errorf("%w: free runs take no plan", ErrInvalidRun)
	case typ.NeedsPlan():
		if s.plans == nil {
			return LiveRun{}, fmt.Errorf("%w: plans are unavailable", ErrInvalidRun)
		}
		got, err := s.plans.GetPlan(ctx, userID, req.PlanID)
		if err != nil {
			return LiveRun{}, err
		}
		if got.Type != typ {
			return LiveRun{}, fmt.Errorf("%w: plan %s is a %s plan", ErrInvalidRun, got.ID, got.Type)
		}
		p = &got
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if e, ok := s.registry.get(userID); ok {
		if data, ok := e.store.Snapshot(); ok && (data.Status == session.StatusRunning || data.Status == session.StatusPaused) {
			return LiveRun{}, ErrRunInProgress
		}
	}

	e := s.registry.open(userID, session.Data{
		ID:             uuid.NewString(),
		Type:           typ,
		PlanID:         req.PlanID,
		Status:         session.StatusReady,
		CurrentMetrics: metrics.Zero(),
	}, p)
	view, _ := e.current()

	s.inst.created(ctx, typ)
	log.Info(ctx, log.KV{K: "msg", V: "run created"}, log.KV{K: "run_id", V: view.ID}, log.KV{K: "type", V: string(typ)})
	return view, nil
}

func (s *Service) Current(userID string) (LiveRun, error) {
	e, ok := s.registry.get(userID)
	if !ok {
		return LiveRun{}, ErrNoActiveRun
	}
	view, ok := e.current()
	if !ok {
		return LiveRun{}, ErrNoActiveRun
	}
	return view, nil
}

func (s *Service) Start(ctx context.Context, userID string) (LiveRun, error) {
	return s.transition(ctx, userID, session.StatusRunning, (*session.Store).StartSession)
}

func (s *Service) Pause(ctx context.Context, userID string) (LiveRun, error) {
	return s.transition(ctx, userID, session.StatusPaused, (*session.Store).PauseSession)
}

func (s *Service) Resume(ctx context.Context, userID string) (LiveRun, error) {
	return s.transition(ctx, userID, session.StatusRunning, (*session.Store).ResumeSession)
}

// Stop ends the run, saves its summary and clears it. A failure to save is
// logged and does not undo the stop.
func (s *Service) Stop(ctx context.Context, userID string) (Run, error) {
	e, ok := s.registry.get(userID)
	if !ok {
		return Run{}, ErrNoActiveRun
	}
	applied := e.store.StopSession()
	s.inst.transition(ctx, session.StatusStopped, applied)
	if !applied {
		return Run{}, ErrTransitionRejected
	}
	data, ok := e.store.Snapshot()
	if !ok {
		return Run{}, ErrNoActiveRun
	}

	run := summarize(userID, data, e.ctrl.Elapsed(), s.registry.clock.Now())
	if err := s.save(ctx, run); err != nil {
		s.inst.persistFailures.Add(ctx, 1)
		log.Error(ctx, err, log.KV{K: "msg", V: "save run summary"}, log.KV{K: "run_id", V: run.ID})
	}
	s.registry.release(userID, e)

	log.Info(ctx, log.KV{K: "msg", V: "run stopped"}, log.KV{K: "run_id", V: run.ID},
		log.KV{K: "distance_km", V: run.DistanceKm}, log.KV{K: "elapsed_sec", V: run.ElapsedSec})
	return run, nil
}

// Discard drops the live run without saving it.
func (s *Service) Discard(ctx context.Context, userID string) error {
	if !s.registry.Close(userID) {
		return ErrNoActiveRun
	}
	log.Debug(ctx, log.KV{K: "msg", V: "run discarded"}, log.KV{K: "user_id", V: userID})
	return nil
}

func (s *Service) AddLocation(ctx context.Context, userID string, req LocationRequest) (LiveRun, error) {
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return LiveRun{}, ErrInvalidLocation
	}
	e, ok := s.registry.get(userID)
	if !ok {
		return LiveRun{}, ErrNoActiveRun
	}
	if !e.store.AppendLocation(metrics.Location{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: req.Timestamp,
	}) {
		return LiveRun{}, ErrNotRunning
	}
	s.inst.locations.Add(ctx, 1)

	view, ok := e.current()
	if !ok {
		return LiveRun{}, ErrNoActiveRun
	}
	return view, nil
}

// History returns the caller's finished runs, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrStorageUnavailable
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, COALESCE(plan_id, ''), started_at, ended_at,
		       distance_km, elapsed_sec, pause_sec, pace_min_per_km, calories
		FROM runs
		WHERE user_id=$1
		ORDER BY ended_at DESC
		LIMIT $2
	`, userID, pageSize(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r   Run
			typ string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &typ, &r.PlanID, &r.StartedAt, &r.EndedAt,
			&r.DistanceKm, &r.ElapsedSec, &r.PauseSec, &r.PaceMinPerKm, &r.Calories); err != nil {
			return nil, err
		}
		r.Type = session.Type(typ)
		r.display()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Feed returns finished runs of the caller and their friends, newest first.
func (s *Service) Feed(ctx context.Context, userID string, limit int) ([]FeedEntry, error) {
	if s.db == nil {
		return nil, ErrStorageUnavailable
	}
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.user_id, u.display_name, r.type, COALESCE(r.plan_id, ''), r.started_at, r.ended_at,
		       r.distance_km, r.elapsed_sec, r.pause_sec, r.pace_min_per_km, r.calories
		FROM runs r
		JOIN users u ON u.id = r.user_id
		WHERE r.user_id=$1
		   OR r.user_id IN (SELECT friend_id FROM friendships WHERE user_id=$1)
		ORDER BY r.ended_at DESC
		LIMIT $2
	`, userID, pageSize(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	feed := []FeedEntry{}
	for rows.Next() {
		var (
			f   FeedEntry
			typ string
		)
		if err := rows.Scan(&f.ID, &f.UserID, &f.DisplayName, &typ, &f.PlanID, &f.StartedAt, &f.EndedAt,
			&f.DistanceKm, &f.ElapsedSec, &f.PauseSec, &f.PaceMinPerKm, &f.Calories); err != nil {
			return nil, err
		}
		f.Type = session.Type(typ)
		f.display()
		feed = append(feed, f)
	}
	return feed, rows.Err()
}

func (s *Service) transition(ctx context.Context, userID string, to session.Status, apply func(*session.Store) bool) (LiveRun, error) {
	e, ok := s.registry.get(userID)
	if !ok {
		return LiveRun{}, ErrNoActiveRun
	}
	applied := apply(e.store)
	s.inst.transition(ctx, to, applied)
	if !applied {
		return LiveRun{}, ErrTransitionRejected
	}
	view, ok := e.current()
	if !ok {
		return LiveRun{}, ErrNoActiveRun
	}
	return view, nil
}

func (s *Service) save(ctx context.Context, run Run) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO runs (id, user_id, type, plan_id, started_at, ended_at,
		                  distance_km, elapsed_sec, pause_sec, pace_min_per_km, calories)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, run.ID, run.UserID, string(run.Type), nullable(run.PlanID), run.StartedAt, run.EndedAt,
		run.DistanceKm, run.ElapsedSec, run.PauseSec, run.PaceMinPerKm, run.Calories)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func summarize(userID string, data session.Data, elapsed time.Duration, endedAt time.Time) Run {
	km := metrics.DistanceKm(data.Locations)
	run := Run{
		ID:           data.ID,
		UserID:       userID,
		Type:         data.Type,
		PlanID:       data.PlanID,
		StartedAt:    data.StartTime,
		EndedAt:      endedAt,
		DistanceKm:   km,
		ElapsedSec:   int64(elapsed / time.Second),
		PauseSec:     int64(data.TotalPauseTime / time.Second),
		PaceMinPerKm: metrics.PaceMinPerKm(elapsed, km),
		Calories:     metrics.Calories(km),
	}
	run.display()
	return run
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
