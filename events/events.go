package events

import (
	"time"

	"github.com/google/uuid"
)

// Event subjects (topics)
const (
	SubjectUserFollowed = "user.followed"
)

// UserFollowedEvent is published after a follow succeeds. Unfollow never
// produces an event.
type UserFollowedEvent struct {
	FollowerID  uuid.UUID `json:"follower_id"`
	FollowingID uuid.UUID `json:"following_id"`
	Timestamp   time.Time `json:"timestamp"`
}
