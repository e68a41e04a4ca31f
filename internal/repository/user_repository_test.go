package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/query"
	"github.com/roamio/tour-booking/internal/repository"
)

var errDuplicate = errors.New("Error 1062 (23000): Duplicate entry 'ann@x.com' for key 'users.email'")

func newUserRepo(t *testing.T) (*repository.UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewUserRepo(db), mock
}

func userRows(u model.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "photo",
		"password_changed_at", "password_reset_token_hash", "password_reset_expires_at",
		"created_at", "updated_at",
	}).AddRow(u.ID, u.Name, u.Email, u.PasswordHash, u.Role.String(), u.Photo,
		u.PasswordChangedAt, u.PasswordResetTokenHash, u.PasswordResetExpiresAt,
		u.CreatedAt, u.UpdatedAt)
}

func TestUserRepoCreateNormalizesEmail(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)")).
		WithArgs("Ann", "ann@x.com", "hash", "user").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create(context.Background(), "Ann", "  Ann@X.com ", "hash", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec("INSERT INTO users").WillReturnError(errDuplicate)

	_, err := repo.Create(context.Background(), "Ann", "ann@x.com", "hash", model.RoleUser)
	assert.ErrorIs(t, err, repository.ErrEmailExists)
}

func TestUserRepoGetByEmailNotFound(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("gone@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "gone@x.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepoGetByResetTokenHash(t *testing.T) {
	repo, mock := newUserRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE password_reset_token_hash=? AND password_reset_expires_at>?")).
		WithArgs("deadbeef", now).
		WillReturnRows(userRows(model.User{
			ID: 3, Name: "Ann", Email: "ann@x.com", Role: model.RoleUser,
			PasswordResetTokenHash: sql.NullString{String: "deadbeef", Valid: true},
			PasswordResetExpiresAt: sql.NullTime{Time: now.Add(time.Minute), Valid: true},
		}))

	u, err := repo.GetByResetTokenHash(context.Background(), "deadbeef", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, model.RoleUser, u.Role)
}

// UpdatePassword must stamp password_changed_at and clear both reset fields in
// the same statement; a reset token survives a password change otherwise.
func TestUserRepoUpdatePasswordClearsResetFields(t *testing.T) {
	repo, mock := newUserRepo(t)
	changed := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(
		"password_reset_token_hash=NULL, password_reset_expires_at=NULL")).
		WithArgs("newhash", changed, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 3, "newhash", changed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoListDefaultProjectionHidesCredentials(t *testing.T) {
	repo, mock := newUserRepo(t)

	d, err := query.Parse(url.Values{})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id,name,email,role,photo,created_at FROM users WHERE 1=1 "+
			"ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "name", "email", "role", "photo", "created_at"}).
			AddRow(1, "Ann", "ann@x.com", "user", "default.jpg", time.Now()))

	rows, err := repo.List(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ann@x.com", rows[0]["email"])
	_, leaked := rows[0]["password_hash"]
	assert.False(t, leaked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
