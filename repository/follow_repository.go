package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"followgraph-service/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicateEdge reports that the follow edge already exists. The store
// enforces the (follower_id, following_id) uniqueness server-side; the
// service-level "already following" check is only an optimization in front
// of this.
var ErrDuplicateEdge = errors.New("follow edge already exists")

type FollowRepository interface {
	CreateFollow(ctx context.Context, followerID, followingID uuid.UUID) (*models.Follow, error)
	DeleteFollow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	Exists(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int32, error)
	CountFollowing(ctx context.Context, userID uuid.UUID) (int32, error)
	ListFollowers(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Follow, error)
	ListFollowing(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Follow, error)
	BatchStatuses(ctx context.Context, followerID uuid.UUID, targetIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// CreateFollow inserts a new follow edge and returns it. A uniqueness
// violation surfaces as ErrDuplicateEdge rather than a raw pq error.
func (r *followRepository) CreateFollow(ctx context.Context, followerID, followingID uuid.UUID) (*models.Follow, error) {
	edge := &models.Follow{
		ID:          uuid.New(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO follows (id, follower_id, following_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, edge.ID, edge.FollowerID, edge.FollowingID, edge.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateEdge
		}
		return nil, fmt.Errorf("failed to create follow edge: %w", err)
	}

	return edge, nil
}

// DeleteFollow removes a follow edge by exact match. It reports whether an
// edge was actually deleted; deleting a non-existent edge is not an error.
func (r *followRepository) DeleteFollow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	query := `
		DELETE FROM follows
		WHERE follower_id = $1 AND following_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow edge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Exists checks whether followerID follows followingID
func (r *followRepository) Exists(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM follows
			WHERE follower_id = $1 AND following_id = $2
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}

	return exists, nil
}

// CountFollowers returns the number of users following userID
func (r *followRepository) CountFollowers(ctx context.Context, userID uuid.UUID) (int32, error) {
	query := `SELECT COUNT(*) FROM follows WHERE following_id = $1`

	var count int32
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

// CountFollowing returns the number of users userID follows
func (r *followRepository) CountFollowing(ctx context.Context, userID uuid.UUID) (int32, error) {
	query := `SELECT COUNT(*) FROM follows WHERE follower_id = $1`

	var count int32
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}

// ListFollowers returns a page of edges pointing at userID, newest first
func (r *followRepository) ListFollowers(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Follow, error) {
	query := `
		SELECT id, follower_id, following_id, created_at
		FROM follows
		WHERE following_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var edges []models.Follow
	if err := r.db.SelectContext(ctx, &edges, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return edges, nil
}

// ListFollowing returns a page of edges originating from userID, newest first
func (r *followRepository) ListFollowing(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Follow, error) {
	query := `
		SELECT id, follower_id, following_id, created_at
		FROM follows
		WHERE follower_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var edges []models.Follow
	if err := r.db.SelectContext(ctx, &edges, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return edges, nil
}

// BatchStatuses reports, for one query, which of targetIDs followerID
// follows. Targets absent from the result simply are not followed.
func (r *followRepository) BatchStatuses(ctx context.Context, followerID uuid.UUID, targetIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	statuses := make(map[uuid.UUID]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return statuses, nil
	}

	query := `
		SELECT following_id
		FROM follows
		WHERE follower_id = $1 AND following_id = ANY($2)
	`

	rows, err := r.db.QueryxContext(ctx, query, followerID, pq.Array(targetIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query follow statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var targetID uuid.UUID
		if err := rows.Scan(&targetID); err != nil {
			return nil, fmt.Errorf("failed to scan follow status: %w", err)
		}
		statuses[targetID] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follow statuses: %w", err)
	}

	return statuses, nil
}
