package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmsapps/adsync/services/sync-service/internal/models"
)

// UserStore persists dashboard users. Auth and session issuance live
// elsewhere; this store only backs the profile and deletion routes.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// FindByID returns the user, or ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, email_verified, image, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.EmailVerified, &user.Image, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, &PersistenceError{Op: "users.find", Cause: err}
	}
	return user, nil
}

// Upsert creates the user row or refreshes its profile fields.
func (s *UserStore) Upsert(ctx context.Context, user models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, email_verified, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			email_verified = EXCLUDED.email_verified,
			image = EXCLUDED.image,
			updated_at = NOW()`,
		user.ID, user.Email, user.EmailVerified, user.Image,
	)
	if err != nil {
		return &PersistenceError{Op: "users.upsert", Cause: err}
	}
	return nil
}

// Delete removes the user. The schema cascades ownership, so the user's
// ad accounts go with the row.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return &PersistenceError{Op: "users.delete", Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
