package models

import (
	"time"

	"github.com/google/uuid"
)

// User model for database (auth and session issuance live elsewhere; the
// sync service only needs the owning user row for FK linkage and deletion).
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	EmailVerified *time.Time `db:"email_verified" json:"emailVerified"`
	Image         *string    `db:"image" json:"image"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}
