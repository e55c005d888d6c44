package social

import "time"

// Friend is one entry of a runner's friends list.
type Friend struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Since       time.Time `json:"since"`
}

type AddFriendRequest struct {
	FriendID string `json:"friend_id"`
}
