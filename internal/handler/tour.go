package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/query"
	"github.com/roamio/tour-booking/internal/repository"
)

// TourHandler serves the tour catalogue: the translator-driven collection
// listing, single-tour reads by slug and the management CRUD surface.
type TourHandler struct {
	Tours *repository.TourRepo
}

func NewTourHandler(tours *repository.TourRepo) *TourHandler {
	return &TourHandler{Tours: tours}
}

type tourPayload struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	DurationDays    uint32    `json:"duration_days"`
	MaxGroupSize    uint32    `json:"max_group_size"`
	Difficulty      string    `json:"difficulty"`
	RatingsAverage  float64   `json:"ratings_average"`
	RatingsQuantity uint32    `json:"ratings_quantity"`
	PriceCents      uint64    `json:"price_cents"`
	Summary         string    `json:"summary"`
	Description     string    `json:"description"`
	ImageCover      string    `json:"image_cover"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTourPayload(t model.Tour) tourPayload {
	return tourPayload{
		ID: t.ID, Name: t.Name, Slug: t.Slug, DurationDays: t.DurationDays,
		MaxGroupSize: t.MaxGroupSize, Difficulty: t.Difficulty,
		RatingsAverage: t.RatingsAverage, RatingsQuantity: t.RatingsQuantity,
		PriceCents: t.PriceCents, Summary: t.Summary, Description: t.Description,
		ImageCover: t.ImageCover, CreatedAt: t.CreatedAt,
	}
}

// List serves the filtered, sorted, projected and paginated tour collection.
// The whole query string contract lives in the query package; the handler only
// relays the translated descriptor to the repository.
func (h *TourHandler) List(c echo.Context) error {
	return h.list(c, c.QueryParams())
}

// TopCheap is a preset alias over List: the five best-rated tours, cheapest
// first among equals, projected down to browsing essentials.
func (h *TourHandler) TopCheap(c echo.Context) error {
	return h.list(c, url.Values{
		"limit":  {"5"},
		"sort":   {"-ratings_average,price_cents"},
		"fields": {"name,price_cents,ratings_average,summary,difficulty"},
	})
}

func (h *TourHandler) list(c echo.Context, params url.Values) error {
	d, err := query.Parse(params)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Tours.List(ctx, d)
	if err != nil {
		var op *apperr.Error
		if errors.As(err, &op) {
			return err
		}
		return apperr.Wrap(apperr.Server, "Could not list tours.", err)
	}
	return respondCollection(c, http.StatusOK, len(rows), echo.Map{"tours": rows})
}

// MyTours lists the tours the logged-in user has booked.
func (h *TourHandler) MyTours(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	tours, err := h.Tours.ListBookedByUser(ctx, u.ID)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not list your tours.", err)
	}

	out := make([]tourPayload, 0, len(tours))
	for _, t := range tours {
		out = append(out, toTourPayload(t))
	}
	return respondCollection(c, http.StatusOK, len(out), echo.Map{"tours": out})
}

type tourStatsPayload struct {
	Difficulty    string  `json:"difficulty"`
	TourCount     uint32  `json:"tour_count"`
	RatingCount   uint64  `json:"rating_count"`
	AvgRating     float64 `json:"avg_rating"`
	AvgPriceCents float64 `json:"avg_price_cents"`
	MinPriceCents uint64  `json:"min_price_cents"`
	MaxPriceCents uint64  `json:"max_price_cents"`
}

// Stats serves the per-difficulty aggregates over the well-rated catalogue.
func (h *TourHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	stats, err := h.Tours.Stats(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not compute tour statistics.", err)
	}

	out := make([]tourStatsPayload, 0, len(stats))
	for _, s := range stats {
		out = append(out, tourStatsPayload{
			Difficulty: s.Difficulty, TourCount: s.TourCount, RatingCount: s.RatingCount,
			AvgRating: s.AvgRating, AvgPriceCents: s.AvgPriceCents,
			MinPriceCents: s.MinPriceCents, MaxPriceCents: s.MaxPriceCents,
		})
	}
	return respondData(c, http.StatusOK, echo.Map{"stats": out})
}

type monthlyPlanPayload struct {
	Month      uint8    `json:"month"`
	TourStarts uint32   `json:"tour_starts"`
	Tours      []string `json:"tours"`
}

// MonthlyPlan serves a year's departure schedule grouped by month, for the
// guide-and-above planning surface.
func (h *TourHandler) MonthlyPlan(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 || year > 9999 {
		return apperr.New(apperr.Validation, "Invalid year in URL.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	plan, err := h.Tours.MonthlyPlan(ctx, year)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not compute the monthly plan.", err)
	}

	out := make([]monthlyPlanPayload, 0, len(plan))
	for _, e := range plan {
		out = append(out, monthlyPlanPayload{Month: e.Month, TourStarts: e.TourStarts, Tours: e.Tours})
	}
	return respondData(c, http.StatusOK, echo.Map{"plan": out})
}

// Get serves one tour. The browsing client addresses tours by slug and the
// management surface by id; a numeric path value resolves as an id, anything
// else as a slug.
func (h *TourHandler) Get(c echo.Context) error {
	raw := c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()

	var (
		t   model.Tour
		err error
	)
	if id, perr := strconv.ParseUint(raw, 10, 64); perr == nil && id > 0 {
		t, err = h.Tours.GetByID(ctx, id)
	} else {
		t, err = h.Tours.GetBySlug(ctx, raw)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No tour found with that name.")
		}
		return apperr.Wrap(apperr.Server, "Could not load the tour.", err)
	}
	return respondData(c, http.StatusOK, echo.Map{"tour": toTourPayload(t)})
}

type tourRequest struct {
	Name         string `json:"name"`
	DurationDays uint32 `json:"duration_days"`
	MaxGroupSize uint32 `json:"max_group_size"`
	Difficulty   string `json:"difficulty"`
	PriceCents   uint64 `json:"price_cents"`
	Summary      string `json:"summary"`
	Description  string `json:"description"`
	ImageCover   string `json:"image_cover"`
}

func (req tourRequest) validate() error {
	if req.Name == "" {
		return apperr.New(apperr.Validation, "A tour must have a name.")
	}
	switch req.Difficulty {
	case "easy", "medium", "difficult":
	default:
		return apperr.New(apperr.Validation, "Difficulty is either: easy, medium, difficult.")
	}
	if req.PriceCents == 0 {
		return apperr.New(apperr.Validation, "A tour must have a price.")
	}
	return nil
}

func (req tourRequest) toModel(id uint64) model.Tour {
	return model.Tour{
		ID: id, Name: req.Name, DurationDays: req.DurationDays,
		MaxGroupSize: req.MaxGroupSize, Difficulty: req.Difficulty,
		PriceCents: req.PriceCents, Summary: req.Summary,
		Description: req.Description, ImageCover: req.ImageCover,
	}
}

// Create adds a tour. Restricted to admin and lead-guide roles at the router.
func (h *TourHandler) Create(c echo.Context) error {
	var req tourRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Tours.Create(ctx, req.toModel(0))
	if err != nil {
		if errors.Is(err, repository.ErrNameExists) {
			return apperr.New(apperr.Conflict, "A tour with that name already exists.")
		}
		return apperr.Wrap(apperr.Server, "Could not create the tour.", err)
	}

	t, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not load the created tour.", err)
	}
	return respondData(c, http.StatusCreated, echo.Map{"tour": toTourPayload(t)})
}

// Update rewrites a tour's mutable fields.
func (h *TourHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req tourRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tours.Update(ctx, req.toModel(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No tour found with that ID.")
		}
		if errors.Is(err, repository.ErrNameExists) {
			return apperr.New(apperr.Conflict, "A tour with that name already exists.")
		}
		return apperr.Wrap(apperr.Server, "Could not update the tour.", err)
	}

	t, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not load the updated tour.", err)
	}
	return respondData(c, http.StatusOK, echo.Map{"tour": toTourPayload(t)})
}

// Delete removes a tour.
func (h *TourHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tours.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No tour found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not delete the tour.", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// pathID parses a numeric id path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.Validation, "Invalid id in URL.")
	}
	return id, nil
}
