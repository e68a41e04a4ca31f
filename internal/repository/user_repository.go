package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/query"
)

// UserColumns lists every selectable column of the users table, in schema
// order. Collection queries resolve projections against this list.
var UserColumns = []string{
	"id", "name", "email", "role", "photo", "created_at",
	"password_hash", "password_changed_at",
	"password_reset_token_hash", "password_reset_expires_at",
}

// UserHiddenColumns are excluded from collection responses unless a caller
// asks for an explicit projection (which is still resolved against
// UserColumns, so even then the credential columns only leave the repository
// layer, never the API: handlers build responses from safe fields only).
var UserHiddenColumns = []string{
	"password_hash", "password_changed_at",
	"password_reset_token_hash", "password_reset_expires_at",
}

const userSelect = `SELECT id,name,email,password_hash,role,photo,
	password_changed_at,password_reset_token_hash,password_reset_expires_at,
	created_at,updated_at FROM users`

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail lowercases and trims an email the same way it is stored, so
// lookups and uniqueness behave case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user and returns its ID. The password arrives already
// hashed; this layer never sees plaintext credentials.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, NormalizeEmail(email), passwordHash, role.String())
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		userSelect+" WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		userSelect+" WHERE id=? LIMIT 1", id))
}

// GetByResetTokenHash fetches the user holding a still-valid reset token.
// Expiry is enforced in the query itself: an expired pending token behaves
// exactly like an unknown one.
func (r *UserRepo) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		userSelect+" WHERE password_reset_token_hash=? AND password_reset_expires_at>? LIMIT 1",
		tokenHash, now))
}

// UpdatePassword stores a new password hash, stamps password_changed_at and
// clears any pending reset token in one statement, so the invariant that the
// reset fields are set or cleared together holds under concurrent requests.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string, changedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, password_changed_at=?,
			password_reset_token_hash=NULL, password_reset_expires_at=NULL WHERE id=?`,
		passwordHash, changedAt, id)
	return err
}

// SetResetToken stores the hash of a freshly issued reset token together with
// its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token_hash=?, password_reset_expires_at=? WHERE id=?",
		tokenHash, expiresAt, id)
	return err
}

// ClearResetToken removes a pending reset token, used when the reset email
// cannot be delivered so no undeliverable reset capability stays active.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token_hash=NULL, password_reset_expires_at=NULL WHERE id=?",
		id)
	return err
}

// List executes a translated collection query over users. Unless the caller
// projects explicitly, the credential columns are excluded by default.
func (r *UserRepo) List(ctx context.Context, d query.Descriptor) ([]map[string]any, error) {
	cols, err := d.Columns(UserColumns, UserHiddenColumns)
	if err != nil {
		return nil, err
	}
	where, args, err := d.Where(UserColumns)
	if err != nil {
		return nil, err
	}
	order, err := d.Order(UserColumns)
	if err != nil {
		return nil, err
	}

	stmt := "SELECT " + strings.Join(cols, ",") + " FROM users WHERE " + where +
		" ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, d.Limit, d.Offset())

	rows, err := r.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]any, 0, d.Limit)
	for rows.Next() {
		var u userScanRow
		ptrs := make([]any, len(cols))
		for i, c := range cols {
			ptrs[i] = userField(&u, c)
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = deref(ptrs[i])
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateRole assigns a user's role; only admins reach this path. Returns
// sql.ErrNoRows when the id does not exist.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=? WHERE id=?", role.String(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateProfile changes name and email. Password fields are deliberately not
// reachable through this path.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=? WHERE id=?",
		name, NormalizeEmail(email), id)
	if isDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	return err
}

// userScanRow holds typed scan destinations for projected user queries, with
// the role as its raw column string.
type userScanRow struct {
	ID                uint64
	Name              string
	Email             string
	Role              string
	Photo             string
	CreatedAt         time.Time
	PasswordHash      string
	PasswordChangedAt sql.NullTime
	ResetTokenHash    sql.NullString
	ResetExpiresAt    sql.NullTime
}

// userField returns the scan destination inside u for a column name. The
// switch is exhaustive over UserColumns.
func userField(u *userScanRow, col string) any {
	switch col {
	case "id":
		return &u.ID
	case "name":
		return &u.Name
	case "email":
		return &u.Email
	case "role":
		return &u.Role
	case "photo":
		return &u.Photo
	case "created_at":
		return &u.CreatedAt
	case "password_hash":
		return &u.PasswordHash
	case "password_changed_at":
		return &u.PasswordChangedAt
	case "password_reset_token_hash":
		return &u.ResetTokenHash
	case "password_reset_expires_at":
		return &u.ResetExpiresAt
	}
	return new(any)
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Photo,
		&u.PasswordChangedAt, &u.PasswordResetTokenHash, &u.PasswordResetExpiresAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if parsed, ok := model.ParseRole(role); ok {
		u.Role = parsed
	}
	return u, nil
}
