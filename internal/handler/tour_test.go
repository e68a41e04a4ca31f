package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/handler"
	"github.com/roamio/tour-booking/internal/repository"
)

func newTourEnv(t *testing.T) (*handler.TourHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return handler.NewTourHandler(repository.NewTourRepo(db)), mock
}

func TestTourStats(t *testing.T) {
	h, mock := newTourEnv(t)

	mock.ExpectQuery("FROM tours WHERE ratings_average").
		WillReturnRows(sqlmock.NewRows([]string{
			"difficulty", "tour_count", "rating_count",
			"avg_rating", "avg_price", "min_price", "max_price",
		}).AddRow("MEDIUM", 3, 42, 4.6, 59700.0, 39700, 79700))

	c, rec := jsonContext(t, http.MethodGet, "/api/v1/tours/tour-stats", "")
	require.NoError(t, h.Stats(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"difficulty":"MEDIUM"`)
	assert.Contains(t, rec.Body.String(), `"tour_count":3`)
}

func monthlyPlanContext(t *testing.T, year string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := jsonContext(t, http.MethodGet, "/api/v1/tours/monthly-plan/"+year, "")
	c.SetParamNames("year")
	c.SetParamValues(year)
	return c, rec
}

func TestMonthlyPlan(t *testing.T) {
	h, mock := newTourEnv(t)

	mock.ExpectQuery("FROM tour_starts").
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"month", "tour_starts", "tours"}).
			AddRow(7, 2, "Forest Hiker\nSea Explorer"))

	c, rec := monthlyPlanContext(t, "2026")
	require.NoError(t, h.MonthlyPlan(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"month":7`)
	assert.Contains(t, rec.Body.String(), `"Sea Explorer"`)
}

func TestMonthlyPlanInvalidYear(t *testing.T) {
	h, mock := newTourEnv(t)

	for _, year := range []string{"abc", "-5", "0", "10000", ""} {
		c, _ := monthlyPlanContext(t, year)
		err := h.MonthlyPlan(c)
		require.Error(t, err, year)
		assert.True(t, apperr.IsKind(err, apperr.Validation), year)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
