package repository

import (
	"context"
	"fmt"

	"followgraph-service/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ProfileRepository resolves display snapshots for a batch of user ids.
// The store has no join between follows and profiles, so list pages are
// enriched with a second IN query instead.
type ProfileRepository interface {
	GetProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	profiles := make(map[uuid.UUID]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	query := `
		SELECT id, username, avatar_url, bio
		FROM profiles
		WHERE id = ANY($1)
	`

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var profile models.Profile
		if err := rows.Scan(&id, &profile.Username, &profile.AvatarURL, &profile.Bio); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles[id] = profile
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}
