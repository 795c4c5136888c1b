package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ju10/academy-api/internal/models"
)

// ProfileRepository handles persistence of member profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID returns the profile attached to a member.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	const query = `SELECT user_id, full_name, phone, id_number, birth_date, address, province, created_at, updated_at
        FROM profiles WHERE user_id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert inserts or refreshes the profile keyed by user_id. The operation is
// idempotent so the enrollment flow can always resubmit the full field set.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO profiles (user_id, full_name, phone, id_number, birth_date, address, province, created_at, updated_at)
        VALUES (:user_id, :full_name, :phone, :id_number, :birth_date, :address, :province, :created_at, :updated_at)
        ON CONFLICT (user_id) DO UPDATE SET
            full_name = EXCLUDED.full_name,
            phone = EXCLUDED.phone,
            id_number = EXCLUDED.id_number,
            birth_date = EXCLUDED.birth_date,
            address = EXCLUDED.address,
            province = EXCLUDED.province,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
