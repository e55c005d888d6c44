package tracking

import (
	"context"
	"errors"
	"fmt"
)

// ErrWatchForbidden is returned when a viewer may not follow a live run.
var ErrWatchForbidden = errors.New("live runs are visible to their owner and friends only")

// FriendChecker answers whether two users are friends.
type FriendChecker interface {
	AreFriends(ctx context.Context, userID, friendID string) (bool, error)
}

// AuthorizeWatch allows viewerID to follow the live run runID when the viewer
// owns it or is a friend of the owner. With nil friends only the owner may
// watch.
func (r *Registry) AuthorizeWatch(ctx context.Context, viewerID, runID string, friends FriendChecker) error {
	owner, ok := r.ownerOf(runID)
	if !ok {
		return ErrNoActiveRun
	}
	if owner == viewerID {
		return nil
	}
	if friends == nil {
		return ErrWatchForbidden
	}
	ok, err := friends.AreFriends(ctx, owner, viewerID)
	if err != nil {
		return fmt.Errorf("check friendship: %w", err)
	}
	if !ok {
		return ErrWatchForbidden
	}
	return nil
}

// WatchAuthorizer adapts AuthorizeWatch for the watcher route, turning
// refusals into HTTP errors.
func WatchAuthorizer(r *Registry, friends FriendChecker) func(ctx context.Context, viewerID, runID string) error {
	return func(ctx context.Context, viewerID, runID string) error {
		if err := r.AuthorizeWatch(ctx, viewerID, runID, friends); err != nil {
			return runError(err)
		}
		return nil
	}
}
