package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/query"
	"github.com/roamio/tour-booking/internal/repository"
)

// UserHandler serves the profile endpoints of the logged-in user and the
// admin-only user management CRUD.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

// Me returns the profile of the logged-in user.
func (h *UserHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
	}
	return respondData(c, http.StatusOK, echo.Map{"user": toUserPayload(*u)})
}

type updateMeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	// Bound only to detect misuse; this route never touches credentials.
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdateMe changes the logged-in user's name and email. Password changes are
// rejected here and directed to the dedicated endpoint, which re-verifies the
// current password and rotates the session token.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
	}

	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if req.Password != "" || req.PasswordConfirm != "" {
		return apperr.New(apperr.Validation,
			"This route is not for password updates. Please use /update-my-password.")
	}
	if req.Name == "" {
		req.Name = u.Name
	}
	if req.Email == "" {
		req.Email = u.Email
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdateProfile(ctx, u.ID, req.Name, req.Email); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return apperr.New(apperr.Conflict, "Email is already registered.")
		}
		return apperr.Wrap(apperr.Server, "Could not update the profile.", err)
	}

	fresh, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not load the updated profile.", err)
	}
	return respondData(c, http.StatusOK, echo.Map{"user": toUserPayload(fresh)})
}

// List serves the user collection through the query translator. Admin only.
// Credential columns are excluded from the default projection by the
// repository's hidden-column set.
func (h *UserHandler) List(c echo.Context) error {
	d, err := query.Parse(c.QueryParams())
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Users.List(ctx, d)
	if err != nil {
		var op *apperr.Error
		if errors.As(err, &op) {
			return err
		}
		return apperr.Wrap(apperr.Server, "Could not list users.", err)
	}
	return respondCollection(c, http.StatusOK, len(rows), echo.Map{"users": rows})
}

// Get serves one user by id. Admin only.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No user found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not load the user.", err)
	}
	return respondData(c, http.StatusOK, echo.Map{"user": toUserPayload(u)})
}

type adminUpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Update changes a user's profile fields and, optionally, the role. Admin
// only; this is the single path through which elevated roles are assigned.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req adminUpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No user found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not load the user.", err)
	}

	if req.Name == "" {
		req.Name = u.Name
	}
	if req.Email == "" {
		req.Email = u.Email
	}
	if err := h.Users.UpdateProfile(ctx, id, req.Name, req.Email); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return apperr.New(apperr.Conflict, "Email is already registered.")
		}
		return apperr.Wrap(apperr.Server, "Could not update the user.", err)
	}

	if req.Role != "" {
		role, ok := model.ParseRole(req.Role)
		if !ok {
			return apperr.New(apperr.Validation, "Role is either: user, guide, lead-guide, admin.")
		}
		if err := h.Users.UpdateRole(ctx, id, role); err != nil {
			return apperr.Wrap(apperr.Server, "Could not update the role.", err)
		}
	}

	fresh, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not load the updated user.", err)
	}
	return respondData(c, http.StatusOK, echo.Map{"user": toUserPayload(fresh)})
}

// Delete removes a user. Admin only.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return apperr.Wrap(apperr.Server, "Could not delete the user.", err)
	}
	return c.NoContent(http.StatusNoContent)
}
