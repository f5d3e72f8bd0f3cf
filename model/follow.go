package models

import (
	"time"

	"github.com/google/uuid"
)

type Follow struct {
	ID          uuid.UUID `json:"id" db:"id"`
	FollowerID  uuid.UUID `json:"follower_id" db:"follower_id"`   // User who is following
	FollowingID uuid.UUID `json:"following_id" db:"following_id"` // User being followed
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Profile is the display snapshot resolved for list rows. All fields are
// pointers so a row can carry graph data even when resolution failed.
type Profile struct {
	Username  *string `json:"username,omitempty" db:"username"`
	AvatarURL *string `json:"avatar_url,omitempty" db:"avatar_url"`
	Bio       *string `json:"bio,omitempty" db:"bio"`
}

// FollowEntry is one row of a followers/following page: the counterpart user
// plus an optional profile snapshot.
type FollowEntry struct {
	UserID     uuid.UUID `json:"user_id"`
	FollowedAt time.Time `json:"followed_at"`
	Profile    Profile   `json:"profile"`
}

type FollowStatus struct {
	UserID      uuid.UUID `json:"user_id"`
	IsFollowing bool      `json:"is_following"`
}

type UserFollowCounts struct {
	UserID         uuid.UUID `json:"user_id"`
	FollowersCount int32     `json:"followers_count"`
	FollowingCount int32     `json:"following_count"`
}
