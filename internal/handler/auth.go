package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/config"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/repository"
	"github.com/roamio/tour-booking/internal/utils"
)

// Mailer requests transactional emails. service.Mailer is the production
// implementation; tests substitute fakes.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

// AuthHandler owns the session lifecycle: signup, login, logout, the
// password-reset flow and in-session password change.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Mail  Mailer
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, mail Mailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Mail: mail}
}

// userPayload is the safe projection of a user sent back to clients. The
// credential columns never appear in any response.
type userPayload struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Photo string `json:"photo,omitempty"`
}

func toUserPayload(u model.User) userPayload {
	return userPayload{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role.String(), Photo: u.Photo}
}

// sendSession issues a fresh token, sets the session cookie and writes the
// standard authenticated response. Every path that establishes or re-establishes
// a session goes through here.
func (h *AuthHandler) sendSession(c echo.Context, status int, u model.User) error {
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, h.Cfg.SessionTTLMin)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not create session token.", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    tok.Token,
		Expires:  tok.Exp,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteNoneMode,
	})
	return c.JSON(status, echo.Map{
		"status": "success",
		"token":  tok.Token,
		"data":   echo.Map{"user": toUserPayload(u)},
	})
}

func validateNewPassword(password, confirm string) error {
	if len(password) < 8 {
		return apperr.New(apperr.Validation, "Passwords should be at least 8 characters long.")
	}
	if password != confirm {
		return apperr.New(apperr.Validation, "Passwords do not match.")
	}
	return nil
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Signup registers a new account. The role is always "user": elevated roles
// are only ever assigned by an admin through the user management endpoints.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if req.Name == "" || req.Email == "" {
		return apperr.New(apperr.Validation, "Please provide your name and email.")
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not process the password.", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Users.Create(ctx, req.Name, req.Email, hash, model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return apperr.New(apperr.Conflict, "Email is already registered.")
		}
		return apperr.Wrap(apperr.Server, "Could not create the account.", err)
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not load the created account.", err)
	}

	// Best effort: a broker outage must not block registration.
	if err := h.Mail.SendWelcome(ctx, u.Email, u.Name); err != nil {
		log.Printf("signup: welcome email for %s not queued: %v", u.Email, err)
	}

	return h.sendSession(c, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password return the same message so the endpoint does not reveal which
// accounts exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.New(apperr.Validation, "Please provide email and password.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.Auth, "Incorrect email or password.")
		}
		return apperr.Wrap(apperr.Server, "Could not verify credentials.", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return apperr.New(apperr.Auth, "Incorrect email or password.")
	}

	return h.sendSession(c, http.StatusOK, u)
}

// Logout overwrites the session cookie with a short-lived blank value. The
// token itself stays valid until expiry; logout is a client-side affordance.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Expires:  time.Now().Add(10 * time.Second),
		Path:     "/",
		HttpOnly: true,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a single-use reset token and emails a link embedding
// its raw value. Only the hash is stored. If the email cannot be queued the
// pending token is cleared again, so no unreachable reset capability stays
// live.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if req.Email == "" {
		return apperr.New(apperr.Validation, "Please provide your email address.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "There is no user with provided email address.")
		}
		return apperr.Wrap(apperr.Server, "Could not look up the account.", err)
	}

	raw, err := utils.NewResetToken()
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not create a reset token.", err)
	}
	expires := time.Now().UTC().Add(utils.ResetTokenTTL)
	if err := h.Users.SetResetToken(ctx, u.ID, utils.HashResetRaw(raw), expires); err != nil {
		return apperr.Wrap(apperr.Server, "Could not store the reset token.", err)
	}

	resetURL := h.Cfg.ClientBaseURL + "/reset-password/" + raw
	if err := h.Mail.SendPasswordReset(ctx, u.Email, u.Name, resetURL); err != nil {
		if clearErr := h.Users.ClearResetToken(ctx, u.ID); clearErr != nil {
			log.Printf("forgot-password: could not clear reset token for user %d: %v", u.ID, clearErr)
		}
		return apperr.Wrap(apperr.Server,
			"There was an error while sending the email. Try again later.", err)
	}

	return respondMessage(c, http.StatusOK, "Token sent to the email.")
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// ResetPassword consumes a reset token from the URL. The lookup is by hash and
// checks expiry in the query, so expired, already-used and never-issued tokens
// all fail identically.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	raw := c.Param("token")

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByResetTokenHash(ctx, utils.HashResetRaw(raw), time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.Validation, "Token is invalid or expired.")
		}
		return apperr.Wrap(apperr.Server, "Could not verify the reset token.", err)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not process the password.", err)
	}
	// Stamps password_changed_at and clears the reset fields in one statement,
	// invalidating every previously issued session token and making the reset
	// token single use.
	if err := h.Users.UpdatePassword(ctx, u.ID, hash, time.Now().UTC()); err != nil {
		return apperr.Wrap(apperr.Server, "Could not update the password.", err)
	}

	return h.sendSession(c, http.StatusOK, u)
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePassword changes the password of the logged-in user. It requires the
// current password so a hijacked session cannot silently lock out the owner,
// and ends with a fresh token because the change invalidates the current one.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
	}

	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.PasswordCurrent) {
		return apperr.New(apperr.Auth, "Your current password is wrong.")
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not process the password.", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdatePassword(ctx, u.ID, hash, time.Now().UTC()); err != nil {
		return apperr.Wrap(apperr.Server, "Could not update the password.", err)
	}

	return h.sendSession(c, http.StatusOK, *u)
}
