package social

import (
	"context"
	"errors"
	"fmt"

	"backend-runcoach/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrSelfFriend  = errors.New("cannot add yourself as a friend")
	ErrUnknownUser = errors.New("unknown user")
)

const foreignKeyViolation = "23503"

// Service manages friendships. A friendship is stored as two rows, one per
// direction, so every lookup is a single-column filter.
type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

func (s *Service) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return ErrSelfFriend
	}
	if s.db == nil {
		return db.ErrUnavailable
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1,$2), ($2,$1)
		ON CONFLICT DO NOTHING
	`, userID, friendID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrUnknownUser
		}
		return fmt.Errorf("add friend: %w", err)
	}
	return nil
}

func (s *Service) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if s.db == nil {
		return db.ErrUnavailable
	}
	_, err := s.db.Exec(ctx, `
		DELETE FROM friendships
		WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
	`, userID, friendID)
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	return nil
}

func (s *Service) Friends(ctx context.Context, userID string) ([]Friend, error) {
	if s.db == nil {
		return nil, db.ErrUnavailable
	}
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.display_name, f.created_at
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id=$1
		ORDER BY u.display_name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []Friend{}
	for rows.Next() {
		var f Friend
		if err := rows.Scan(&f.UserID, &f.DisplayName, &f.Since); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// AreFriends reports whether userID has friendID in their list.
func (s *Service) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	if s.db == nil {
		return false, db.ErrUnavailable
	}
	var ok bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)
	`, userID, friendID).Scan(&ok)
	return ok, err
}
