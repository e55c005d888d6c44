package social

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
)

func TestAreFriends(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user-1", "user-2").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user-1", "user-3").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	svc := NewService(mock)
	ok, err := svc.AreFriends(context.Background(), "user-1", "user-2")
	if err != nil || !ok {
		t.Fatalf("expected friends, got %v %v", ok, err)
	}
	ok, err = svc.AreFriends(context.Background(), "user-1", "user-3")
	if err != nil || ok {
		t.Fatalf("expected not friends, got %v %v", ok, err)
	}
}

func TestAddFriendSelf(t *testing.T) {
	svc := NewService(nil)
	if err := svc.AddFriend(context.Background(), "user-1", "user-1"); !errors.Is(err, ErrSelfFriend) {
		t.Fatalf("expected ErrSelfFriend, got %v", err)
	}
}

func TestAddFriendWrapsStorageError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO friendships`).
		WithArgs("user-1", "user-2").
		WillReturnError(errSocial)

	err := NewService(mock).AddFriend(context.Background(), "user-1", "user-2")
	if !errors.Is(err, errSocial) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
