package tracking

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

type stubFriends struct {
	pairs map[[2]string]bool
	err   error
	calls int
}

func (s *stubFriends) AreFriends(_ context.Context, userID, friendID string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.pairs[[2]string{userID, friendID}], nil
}

func TestAuthorizeWatch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	run, err := h.svc.Create(ctx, "owner", CreateRunRequest{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	friends := &stubFriends{pairs: map[[2]string]bool{{"owner", "pal"}: true}}

	cases := []struct {
		name    string
		viewer  string
		runID   string
		friends FriendChecker
		want    error
	}{
		{"owner", "owner", run.ID, nil, nil},
		{"friend", "pal", run.ID, friends, nil},
		{"stranger", "stranger", run.ID, friends, ErrWatchForbidden},
		{"no friend lookup", "pal", run.ID, nil, ErrWatchForbidden},
		{"unknown run", "owner", "missing", friends, ErrNoActiveRun},
	}
	for _, tc := range cases {
		err := h.registry.AuthorizeWatch(ctx, tc.viewer, tc.runID, tc.friends)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if friends.calls != 2 {
		t.Fatalf("expected the owner and unknown runs to skip the friend lookup, got %d calls", friends.calls)
	}
}

func TestAuthorizeWatchFollowsRunLifetime(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, _ := h.svc.Create(ctx, "owner", CreateRunRequest{})
	second, _ := h.svc.Create(ctx, "owner", CreateRunRequest{})
	if err := h.registry.AuthorizeWatch(ctx, "owner", first.ID, nil); !errors.Is(err, ErrNoActiveRun) {
		t.Fatalf("replaced run must not be watchable, got %v", err)
	}
	if err := h.registry.AuthorizeWatch(ctx, "owner", second.ID, nil); err != nil {
		t.Fatalf("current run: %v", err)
	}
	if err := h.svc.Discard(ctx, "owner"); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if err := h.registry.AuthorizeWatch(ctx, "owner", second.ID, nil); !errors.Is(err, ErrNoActiveRun) {
		t.Fatalf("released run must not be watchable, got %v", err)
	}
}

func TestWatchAuthorizerStatusCodes(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	run, _ := h.svc.Create(ctx, "owner", CreateRunRequest{})

	authorize := WatchAuthorizer(h.registry, &stubFriends{err: errStorage})
	if err := authorize(ctx, "owner", run.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}

	cases := []struct {
		viewer, runID string
		code          int
	}{
		{"pal", run.ID, http.StatusInternalServerError},
		{"owner", "missing", http.StatusNotFound},
	}
	for _, tc := range cases {
		var fe *fiber.Error
		if err := authorize(ctx, tc.viewer, tc.runID); !errors.As(err, &fe) || fe.Code != tc.code {
			t.Fatalf("%s/%s: expected %d, got %v", tc.viewer, tc.runID, tc.code, err)
		}
	}

	var fe *fiber.Error
	err := WatchAuthorizer(h.registry, nil)(ctx, "stranger", run.ID)
	if !errors.As(err, &fe) || fe.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRegistryReleaseHooks(t *testing.T) {
	registry := NewRegistry(context.Background(), newFakeClock(), time.Second, nil)
	svc := NewService(nil, registry, nil, nil)
	ctx := context.Background()

	var released []string
	registry.OnRelease(func(userID string) { released = append(released, userID) })

	svc.Create(ctx, "user-1", CreateRunRequest{})
	svc.Start(ctx, "user-1")
	if _, err := svc.Stop(ctx, "user-1"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	svc.Create(ctx, "user-2", CreateRunRequest{})
	svc.Discard(ctx, "user-2")
	svc.Create(ctx, "user-3", CreateRunRequest{})
	registry.CloseAll()

	want := []string{"user-1", "user-2", "user-3"}
	if len(released) != len(want) {
		t.Fatalf("expected releases %v, got %v", want, released)
	}
	for i := range want {
		if released[i] != want[i] {
			t.Fatalf("expected releases %v, got %v", want, released)
		}
	}
}
