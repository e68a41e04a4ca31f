package middleware_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/utils"
)

const testSecret = "test-signing-secret"

type fakeUserLoader struct {
	users map[uint64]model.User
}

func (f *fakeUserLoader) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func newTestContext(t *testing.T, setup func(*http.Request)) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	if setup != nil {
		setup(req)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func runProtect(t *testing.T, loader middleware.UserLoader, setup func(*http.Request)) (echo.Context, error) {
	t.Helper()
	c := newTestContext(t, setup)
	handler := middleware.Protect(testSecret, loader)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return c, handler(c)
}

func TestProtect_MissingToken(t *testing.T) {
	loader := &fakeUserLoader{}
	_, err := runProtect(t, loader, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Auth))
}

func TestProtect_BearerToken(t *testing.T) {
	loader := &fakeUserLoader{users: map[uint64]model.User{
		7: {ID: 7, Email: "ann@x.com", Role: model.RoleUser},
	}}
	tok, err := utils.NewSessionToken(testSecret, 7, 60)
	require.NoError(t, err)

	c, err := runProtect(t, loader, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	})
	require.NoError(t, err)

	u, ok := middleware.CurrentUser(c)
	require.True(t, ok)
	assert.Equal(t, uint64(7), u.ID)
}

func TestProtect_CookieFallback(t *testing.T) {
	loader := &fakeUserLoader{users: map[uint64]model.User{
		7: {ID: 7, Email: "ann@x.com", Role: model.RoleUser},
	}}
	tok, err := utils.NewSessionToken(testSecret, 7, 60)
	require.NoError(t, err)

	_, err = runProtect(t, loader, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: tok.Token})
	})
	require.NoError(t, err)
}

func TestProtect_InvalidToken(t *testing.T) {
	loader := &fakeUserLoader{}
	for _, raw := range []string{"garbage", "a.b.c"} {
		_, err := runProtect(t, loader, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+raw)
		})
		require.Error(t, err, raw)
		assert.True(t, apperr.IsKind(err, apperr.Auth))
	}
}

func TestProtect_WrongSecret(t *testing.T) {
	loader := &fakeUserLoader{users: map[uint64]model.User{7: {ID: 7}}}
	tok, err := utils.NewSessionToken("another-secret", 7, 60)
	require.NoError(t, err)

	_, err = runProtect(t, loader, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Auth))
}

func TestProtect_UserGone(t *testing.T) {
	loader := &fakeUserLoader{} // token subject no longer exists
	tok, err := utils.NewSessionToken(testSecret, 99, 60)
	require.NoError(t, err)

	_, err = runProtect(t, loader, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Auth))
}

func TestProtect_PasswordChangedInvalidation(t *testing.T) {
	tok, err := utils.NewSessionToken(testSecret, 7, 60)
	require.NoError(t, err)
	claims, err := utils.VerifySessionToken(testSecret, tok.Token)
	require.NoError(t, err)

	tests := []struct {
		name      string
		changedAt time.Time
		wantAuth  bool
	}{
		{"changed after issue", claims.IssuedAt.Add(time.Second), true},
		{"changed same second with sub-second precision", claims.IssuedAt.Add(900 * time.Millisecond), false},
		{"changed before issue", claims.IssuedAt.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &fakeUserLoader{users: map[uint64]model.User{
				7: {
					ID:                7,
					Role:              model.RoleUser,
					PasswordChangedAt: sql.NullTime{Time: tt.changedAt, Valid: true},
				},
			}}
			_, err := runProtect(t, loader, func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+tok.Token)
			})
			if tt.wantAuth {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, apperr.Auth))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     model.Role
		allowed  []model.Role
		wantKind apperr.Kind
	}{
		{"admin allowed", model.RoleAdmin, []model.Role{model.RoleAdmin, model.RoleLeadGuide}, 0},
		{"lead guide allowed", model.RoleLeadGuide, []model.Role{model.RoleAdmin, model.RoleLeadGuide}, 0},
		{"plain user rejected", model.RoleUser, []model.Role{model.RoleAdmin}, apperr.Permission},
		{"guide rejected from admin set", model.RoleGuide, []model.Role{model.RoleAdmin}, apperr.Permission},
		{"unknown role rejected", model.Role("superuser"), []model.Role{model.RoleAdmin}, apperr.Permission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t, nil)
			middleware.SetCurrentUser(c, &model.User{ID: 1, Role: tt.role})

			err := middleware.RequireRole(tt.allowed...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)

			if tt.wantKind == 0 {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, tt.wantKind))
			}
		})
	}
}

func TestRequireRole_NoUserAttached(t *testing.T) {
	c := newTestContext(t, nil)
	err := middleware.RequireRole(model.RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Auth))
}
