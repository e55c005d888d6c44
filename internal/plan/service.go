package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"backend-runcoach/internal/db"
	"backend-runcoach/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidPlan  = errors.New("invalid plan")
	ErrPlanNotFound = errors.New("plan not found")
)

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

// Validate checks that p is a well-formed target or guided plan.
func Validate(p Plan) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidPlan)
	}
	switch p.Type {
	case session.TypeTarget:
		if len(p.Intervals) > 0 {
			return fmt.Errorf("%w: target plans have no intervals", ErrInvalidPlan)
		}
		if p.TargetDistanceKm < 0 || p.TargetDurationSec < 0 {
			return fmt.Errorf("%w: targets must not be negative", ErrInvalidPlan)
		}
		if p.TargetDistanceKm == 0 && p.TargetDurationSec == 0 {
			return fmt.Errorf("%w: distance or duration target required", ErrInvalidPlan)
		}
	case session.TypeGuided:
		if len(p.Intervals) == 0 {
			return fmt.Errorf("%w: guided plans need intervals", ErrInvalidPlan)
		}
		for i, iv := range p.Intervals {
			if iv.Kind != IntervalRun && iv.Kind != IntervalWalk {
				return fmt.Errorf("%w: interval %d has unknown kind %q", ErrInvalidPlan, i, iv.Kind)
			}
			if iv.DurationSec <= 0 {
				return fmt.Errorf("%w: interval %d needs a positive duration", ErrInvalidPlan, i)
			}
		}
	default:
		return fmt.Errorf("%w: type must be target or guided", ErrInvalidPlan)
	}
	return nil
}

func (s *Service) CreatePlan(ctx context.Context, ownerID string, input Plan) (Plan, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := Validate(input); err != nil {
		return Plan{}, err
	}
	if s.db == nil {
		return Plan{}, db.ErrUnavailable
	}
	intervals, err := json.Marshal(input.Intervals)
	if err != nil {
		return Plan{}, err
	}

	input.ID = uuid.NewString()
	input.OwnerID = ownerID
	row := s.db.QueryRow(ctx, `
		INSERT INTO plans (id, owner_id, name, type, target_distance_km, target_duration_sec, intervals)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, input.ID, input.OwnerID, input.Name, string(input.Type), input.TargetDistanceKm, input.TargetDurationSec, intervals)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Plan{}, fmt.Errorf("insert plan: %w", err)
	}
	return input, nil
}

func (s *Service) GetPlan(ctx context.Context, ownerID, id string) (Plan, error) {
	if s.db == nil {
		return Plan{}, db.ErrUnavailable
	}
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, type, target_distance_km, target_duration_sec, intervals, created_at
		FROM plans WHERE id=$1 AND owner_id=$2
	`, id, ownerID)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	return p, err
}

func (s *Service) ListPlans(ctx context.Context, ownerID string) ([]Plan, error) {
	if s.db == nil {
		return nil, db.ErrUnavailable
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, name, type, target_distance_km, target_duration_sec, intervals, created_at
		FROM plans WHERE owner_id=$1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *Service) DeletePlan(ctx context.Context, ownerID, id string) error {
	if s.db == nil {
		return db.ErrUnavailable
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM plans WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (Plan, error) {
	var (
		p         Plan
		typ       string
		intervals []byte
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &typ, &p.TargetDistanceKm, &p.TargetDurationSec, &intervals, &p.CreatedAt); err != nil {
		return Plan{}, err
	}
	p.Type = session.Type(typ)
	if len(intervals) > 0 {
		if err := json.Unmarshal(intervals, &p.Intervals); err != nil {
			return Plan{}, fmt.Errorf("decode intervals of plan %s: %w", p.ID, err)
		}
	}
	return p, nil
}
