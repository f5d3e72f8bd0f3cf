package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"followgraph-service/cache"
	"followgraph-service/events"
	"followgraph-service/model"
	"followgraph-service/repository"
	"followgraph-service/validate"
	"github.com/google/uuid"
)

type direction uint8

const (
	dirFollowers direction = iota
	dirFollowing
)

type countKey struct {
	userID uuid.UUID
	dir    direction
}

type pairKey struct {
	followerID  uuid.UUID
	followingID uuid.UUID
}

type listKey struct {
	userID uuid.UUID
	dir    direction
	limit  int32
	offset int32
}

// Options tunes the service caches and retry behavior. Zero values fall
// back to the defaults below.
type Options struct {
	CountTTL      time.Duration
	MembershipTTL time.Duration
	ListTTL       time.Duration
	MaxEntries    int
	MaxCachedPage int32
	BatchSize     int
	RetryAttempts int
	RetryBackoff  time.Duration
}

func (o Options) withDefaults() Options {
	if o.CountTTL <= 0 {
		o.CountTTL = 10 * time.Minute
	}
	if o.MembershipTTL <= 0 {
		o.MembershipTTL = 10 * time.Minute
	}
	if o.ListTTL <= 0 {
		o.ListTTL = 2 * time.Minute
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = 2048
	}
	if o.MaxCachedPage <= 0 {
		o.MaxCachedPage = 20
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 2
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	return o
}

type followGraphService struct {
	repo     repository.FollowRepository
	profiles repository.ProfileRepository
	notifier FollowNotifier
	opts     Options

	// mu serializes mutations' cache updates so a reader never sees a
	// membership flag and its counts disagree for longer than one
	// critical section.
	mu         sync.Mutex
	counts     *cache.TTL[countKey, int32]
	membership *cache.TTL[pairKey, bool]
	lists      *cache.TTL[listKey, []models.FollowEntry]
}

// NewFollowGraphService builds the service with its own fresh cache
// instances, so tests and callers never share process-wide state.
// notifier may be nil.
func NewFollowGraphService(
	repo repository.FollowRepository,
	profiles repository.ProfileRepository,
	notifier FollowNotifier,
	opts Options,
) FollowGraphService {
	opts = opts.withDefaults()
	return &followGraphService{
		repo:       repo,
		profiles:   profiles,
		notifier:   notifier,
		opts:       opts,
		counts:     cache.NewTTL[countKey, int32](opts.CountTTL, opts.MaxEntries),
		membership: cache.NewTTL[pairKey, bool](opts.MembershipTTL, opts.MaxEntries),
		lists:      cache.NewTTL[listKey, []models.FollowEntry](opts.ListTTL, opts.MaxEntries),
	}
}

// IsFollowing checks the membership cache first and falls back to a store
// existence query, caching the result.
func (s *followGraphService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	follower, err := validate.Identifier("follower_id", followerID)
	if err != nil {
		return false, err
	}
	following, err := validate.Identifier("following_id", followingID)
	if err != nil {
		return false, err
	}

	if follower == following {
		return false, nil
	}

	return s.isFollowing(ctx, follower, following)
}

func (s *followGraphService) isFollowing(ctx context.Context, follower, following uuid.UUID) (bool, error) {
	key := pairKey{followerID: follower, followingID: following}
	if cached, ok := s.membership.Get(key); ok {
		return cached, nil
	}

	exists, err := s.repo.Exists(ctx, follower, following)
	if err != nil {
		return false, fmt.Errorf("failed to check follow state: %w", err)
	}

	s.membership.Set(key, exists)
	return exists, nil
}

// FollowUser creates the edge, applies the incremental cache update and
// schedules the notification side effect without blocking on it.
func (s *followGraphService) FollowUser(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	follower, err := validate.Identifier("follower_id", followerID)
	if err != nil {
		return nil, err
	}
	following, err := validate.Identifier("following_id", followingID)
	if err != nil {
		return nil, err
	}

	if follower == following {
		return nil, ErrSelfFollow
	}

	// Checked before the insert so the caller gets a precise error
	// instead of a surfaced uniqueness violation.
	already, err := s.isFollowing(ctx, follower, following)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyFollowing
	}

	edge, err := s.repo.CreateFollow(ctx, follower, following)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEdge) {
			// The cache was stale; the store is the authority.
			s.membership.Set(pairKey{followerID: follower, followingID: following}, true)
			return nil, ErrAlreadyFollowing
		}
		return nil, err
	}

	s.applyMutation(follower, following, true, true)

	if s.notifier != nil {
		s.notifier.NotifyFollowed(events.UserFollowedEvent{
			FollowerID:  follower,
			FollowingID: following,
			Timestamp:   edge.CreatedAt,
		})
	}

	return edge, nil
}

// UnfollowUser deletes the edge. Unfollowing someone not followed is a
// successful no-op; counts are only adjusted when an edge was actually
// removed, so repeated unfollows cannot drag a cached count below truth.
func (s *followGraphService) UnfollowUser(ctx context.Context, followerID, followingID string) error {
	follower, err := validate.Identifier("follower_id", followerID)
	if err != nil {
		return err
	}
	following, err := validate.Identifier("following_id", followingID)
	if err != nil {
		return err
	}

	if follower == following {
		return ErrSelfFollow
	}

	deleted, err := s.repo.DeleteFollow(ctx, follower, following)
	if err != nil {
		return err
	}

	s.applyMutation(follower, following, false, deleted)
	return nil
}

// ToggleFollow dispatches to follow or unfollow based on current state and
// returns the state after the mutation.
func (s *followGraphService) ToggleFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	current, err := s.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return false, err
	}

	if current {
		if err := s.UnfollowUser(ctx, followerID, followingID); err != nil {
			return current, err
		}
		return false, nil
	}

	if _, err := s.FollowUser(ctx, followerID, followingID); err != nil {
		return current, err
	}
	return true, nil
}

func (s *followGraphService) GetFollowersCount(ctx context.Context, userID string) (int32, error) {
	user, err := validate.Identifier("user_id", userID)
	if err != nil {
		return 0, err
	}
	return s.getCount(ctx, user, dirFollowers)
}

func (s *followGraphService) GetFollowingCount(ctx context.Context, userID string) (int32, error) {
	user, err := validate.Identifier("user_id", userID)
	if err != nil {
		return 0, err
	}
	return s.getCount(ctx, user, dirFollowing)
}

func (s *followGraphService) getCount(ctx context.Context, user uuid.UUID, dir direction) (int32, error) {
	key := countKey{userID: user, dir: dir}
	if cached, ok := s.counts.Get(key); ok {
		return cached, nil
	}

	var count int32
	err := repository.WithRetry(ctx, s.opts.RetryAttempts, s.opts.RetryBackoff, func() error {
		var err error
		if dir == dirFollowers {
			count, err = s.repo.CountFollowers(ctx, user)
		} else {
			count, err = s.repo.CountFollowing(ctx, user)
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch count: %w", err)
	}

	s.counts.Set(key, count)
	return count, nil
}

func (s *followGraphService) GetFollowers(ctx context.Context, userID string, limit, offset int32) ([]models.FollowEntry, error) {
	user, err := validate.Identifier("user_id", userID)
	if err != nil {
		return nil, err
	}
	return s.getList(ctx, user, dirFollowers, limit, offset)
}

func (s *followGraphService) GetFollowing(ctx context.Context, userID string, limit, offset int32) ([]models.FollowEntry, error) {
	user, err := validate.Identifier("user_id", userID)
	if err != nil {
		return nil, err
	}
	return s.getList(ctx, user, dirFollowing, limit, offset)
}

func (s *followGraphService) getList(ctx context.Context, user uuid.UUID, dir direction, limit, offset int32) ([]models.FollowEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	key := listKey{userID: user, dir: dir, limit: limit, offset: offset}
	cacheable := limit <= s.opts.MaxCachedPage
	if cacheable {
		if cached, ok := s.lists.Get(key); ok {
			return cached, nil
		}
	}

	var edges []models.Follow
	err := repository.WithRetry(ctx, s.opts.RetryAttempts, s.opts.RetryBackoff, func() error {
		var err error
		if dir == dirFollowers {
			edges, err = s.repo.ListFollowers(ctx, user, limit, offset)
		} else {
			edges, err = s.repo.ListFollowing(ctx, user, limit, offset)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	entries := make([]models.FollowEntry, len(edges))
	ids := make([]uuid.UUID, len(edges))
	for i, edge := range edges {
		counterpart := edge.FollowerID
		if dir == dirFollowing {
			counterpart = edge.FollowingID
		}
		entries[i] = models.FollowEntry{UserID: counterpart, FollowedAt: edge.CreatedAt}
		ids[i] = counterpart
	}

	// Profile resolution is best-effort; failure degrades the rows
	// instead of failing the call.
	if len(ids) > 0 {
		profiles, err := s.profiles.GetProfiles(ctx, ids)
		if err != nil {
			log.Printf("failed to resolve profiles for %d entries: %v", len(ids), err)
		} else {
			for i := range entries {
				if profile, ok := profiles[entries[i].UserID]; ok {
					entries[i].Profile = profile
				}
			}
		}
	}

	// Large pages are served but never cached.
	if cacheable {
		s.lists.Set(key, entries)
	}

	return entries, nil
}

// BatchCheckFollowStatus validates and deduplicates the targets, then
// resolves them in fixed-size batches with one store query each.
func (s *followGraphService) BatchCheckFollowStatus(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	follower, err := validate.Identifier("follower_id", followerID)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(targetIDs))
	seen := make(map[uuid.UUID]bool, len(targetIDs))
	targets := make([]uuid.UUID, 0, len(targetIDs))

	for _, raw := range targetIDs {
		target, err := validate.Identifier("target_id", raw)
		if err != nil {
			return nil, err
		}
		if seen[target] {
			continue
		}
		seen[target] = true

		if target == follower {
			result[target.String()] = false
			continue
		}
		targets = append(targets, target)
	}

	for start := 0; start < len(targets); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(targets) {
			end = len(targets)
		}
		batch := targets[start:end]

		var statuses map[uuid.UUID]bool
		err := repository.WithRetry(ctx, s.opts.RetryAttempts, s.opts.RetryBackoff, func() error {
			var err error
			statuses, err = s.repo.BatchStatuses(ctx, follower, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to check follow statuses: %w", err)
		}

		for _, target := range batch {
			result[target.String()] = statuses[target]
		}
	}

	return result, nil
}

// applyMutation is the incremental cache update: the membership flag is
// set to the known new value and any cached counts for both sides are
// adjusted in place, all inside one critical section. Cached list pages
// for either user are dropped wholesale. A panic anywhere in here falls
// back to clearing every entry touching either id.
func (s *followGraphService) applyMutation(follower, following uuid.UUID, followed, adjustCounts bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("incremental cache update failed (%v), clearing entries for %s and %s",
				r, follower, following)
			s.clearUserEntries(follower, following)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.membership.Set(pairKey{followerID: follower, followingID: following}, followed)

	if adjustCounts {
		var delta int32 = 1
		if !followed {
			delta = -1
		}
		adjust := func(v int32) int32 {
			v += delta
			if v < 0 {
				v = 0
			}
			return v
		}
		s.counts.Update(countKey{userID: following, dir: dirFollowers}, adjust)
		s.counts.Update(countKey{userID: follower, dir: dirFollowing}, adjust)
	}

	s.lists.DeleteWhere(func(k listKey) bool {
		return k.userID == follower || k.userID == following
	})
}

// clearUserEntries drops every cache entry involving either user.
func (s *followGraphService) clearUserEntries(follower, following uuid.UUID) {
	s.membership.DeleteWhere(func(k pairKey) bool {
		return k.followerID == follower || k.followerID == following ||
			k.followingID == follower || k.followingID == following
	})
	s.counts.DeleteWhere(func(k countKey) bool {
		return k.userID == follower || k.userID == following
	})
	s.lists.DeleteWhere(func(k listKey) bool {
		return k.userID == follower || k.userID == following
	})
}

// Ensure interface is satisfied at compile time.
var _ FollowGraphService = (*followGraphService)(nil)
