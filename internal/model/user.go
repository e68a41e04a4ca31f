package model

import (
	"database/sql"
	"time"
)

// User mirrors a row of the `users` table. Handlers define separate response
// types with JSON tags; this struct is what the repository layer scans into.
//
// PasswordResetTokenHash and PasswordResetExpiresAt are either both set or
// both null: they are written together when a reset is requested and cleared
// together when the reset succeeds or its email cannot be delivered.
type User struct {
	ID                     uint64         // users.id
	Name                   string         // users.name
	Email                  string         // users.email (stored lowercase, trimmed)
	PasswordHash           string         // users.password_hash
	Role                   Role           // users.role
	Photo                  string         // users.photo
	PasswordChangedAt      sql.NullTime   // users.password_changed_at
	PasswordResetTokenHash sql.NullString // users.password_reset_token_hash
	PasswordResetExpiresAt sql.NullTime   // users.password_reset_expires_at
	CreatedAt              time.Time      // users.created_at
	UpdatedAt              time.Time      // users.updated_at
}
