package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/repository"
)

// ReviewHandler serves the reviews nested under a tour plus review deletion.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
	Tours   *repository.TourRepo
}

func NewReviewHandler(reviews *repository.ReviewRepo, tours *repository.TourRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Tours: tours}
}

type reviewPayload struct {
	ID        uint64    `json:"id"`
	TourID    uint64    `json:"tour_id"`
	UserID    uint64    `json:"user_id"`
	Review    string    `json:"review"`
	Rating    uint8     `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewPayload(r model.Review) reviewPayload {
	return reviewPayload{ID: r.ID, TourID: r.TourID, UserID: r.UserID,
		Review: r.Review, Rating: r.Rating, CreatedAt: r.CreatedAt}
}

// ListByTour lists a tour's reviews, newest first.
func (h *ReviewHandler) ListByTour(c echo.Context) error {
	tourID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	reviews, err := h.Reviews.ListByTour(ctx, tourID)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not list reviews.", err)
	}

	out := make([]reviewPayload, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReviewPayload(r))
	}
	return respondCollection(c, http.StatusOK, len(out), echo.Map{"reviews": out})
}

type createReviewRequest struct {
	Review string `json:"review"`
	Rating uint8  `json:"rating"`
}

// Create posts a review on a tour. The author is always the logged-in user;
// the route is restricted to the plain user role.
func (h *ReviewHandler) Create(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
	}
	tourID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req createReviewRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if req.Review == "" {
		return apperr.New(apperr.Validation, "A review cannot be empty.")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return apperr.New(apperr.Validation, "Rating must be between 1 and 5.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Tours.GetByID(ctx, tourID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No tour found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not load the tour.", err)
	}

	id, err := h.Reviews.Create(ctx, model.Review{
		TourID: tourID, UserID: u.ID, Review: req.Review, Rating: req.Rating,
	})
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not create the review.", err)
	}
	return respondData(c, http.StatusCreated, echo.Map{"review": reviewPayload{
		ID: id, TourID: tourID, UserID: u.ID, Review: req.Review, Rating: req.Rating,
		CreatedAt: time.Now().UTC(),
	}})
}

// Delete removes a review. Allowed for the author and for admins; the
// ownership check lives in the repository.
func (h *ReviewHandler) Delete(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reviews.Delete(ctx, id, u.ID, u.Role); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return apperr.New(apperr.NotFound, "No review found with that ID.")
		case errors.Is(err, repository.ErrForbidden):
			return apperr.New(apperr.Permission, "You do not have permission to perform this action.")
		}
		return apperr.Wrap(apperr.Server, "Could not delete the review.", err)
	}
	return c.NoContent(http.StatusNoContent)
}
