package service

import (
	"context"

	"followgraph-service/events"
	"followgraph-service/model"
)

// FollowGraphService mediates every read and write of the follows
// relation. It owns the in-process caches and keeps the derived aggregates
// (counts, membership flags, list pages) consistent with edge mutations.
// All identifier arguments are raw strings; each public method validates
// them before touching cache or store.
type FollowGraphService interface {
	// IsFollowing reports whether followerID follows followingID. A
	// self-pair short-circuits to false without a store call.
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)

	// FollowUser creates the edge and returns it. Fails with
	// ErrSelfFollow or ErrAlreadyFollowing.
	FollowUser(ctx context.Context, followerID, followingID string) (*models.Follow, error)

	// UnfollowUser deletes the edge. Idempotent: unfollowing someone not
	// followed succeeds.
	UnfollowUser(ctx context.Context, followerID, followingID string) error

	// ToggleFollow follows or unfollows depending on current state and
	// returns the resulting state. The primary entry point for UI
	// controls.
	ToggleFollow(ctx context.Context, followerID, followingID string) (bool, error)

	GetFollowersCount(ctx context.Context, userID string) (int32, error)
	GetFollowingCount(ctx context.Context, userID string) (int32, error)

	// GetFollowers and GetFollowing return a page of entries enriched
	// with profile snapshots. Unresolved profiles degrade to nil fields
	// rather than failing the page.
	GetFollowers(ctx context.Context, userID string, limit, offset int32) ([]models.FollowEntry, error)
	GetFollowing(ctx context.Context, userID string, limit, offset int32) ([]models.FollowEntry, error)

	// BatchCheckFollowStatus answers "does followerID follow x" for a
	// whole list of targets with a bounded number of store round trips.
	// Keys of the result map are normalized identifiers; a self-pair is
	// always false.
	BatchCheckFollowStatus(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error)
}

// FollowNotifier receives the fire-and-forget side effect of a successful
// follow. Implementations must not block.
type FollowNotifier interface {
	NotifyFollowed(event events.UserFollowedEvent)
}
