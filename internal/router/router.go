// Package router wires the HTTP surface: which paths exist, which of them sit
// behind authentication and role checks, and which stay outside the rate
// limited /api prefix.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/handler"
	"github.com/roamio/tour-booking/internal/metrics"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/model"
)

// Deps carries everything route registration needs.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	RateLimit echo.MiddlewareFunc

	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Tours    *handler.TourHandler
	Reviews  *handler.ReviewHandler
	Bookings *handler.BookingHandler
}

// Register mounts all routes on e.
//
// The webhook lives outside /api on purpose: it authenticates by signature,
// not session, and must not sit behind the per-IP rate limiter, where a burst
// of legitimate processor retries could be dropped.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", metrics.Handler())
	e.POST("/webhook", d.Bookings.Webhook)

	protect := middleware.Protect(d.JWTSecret, d.Auth.Users)
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleLeadGuide)
	admin := middleware.RequireRole(model.RoleAdmin)

	api := e.Group("/api")
	if d.RateLimit != nil {
		api.Use(d.RateLimit)
	}
	v1 := api.Group("/v1")

	users := v1.Group("/users")
	users.POST("/signup", d.Auth.Signup)
	users.POST("/login", d.Auth.Login)
	users.POST("/logout", d.Auth.Logout)
	users.POST("/forgot-password", d.Auth.ForgotPassword)
	users.PATCH("/reset-password/:token", d.Auth.ResetPassword)
	users.PATCH("/update-my-password", d.Auth.UpdatePassword, protect)
	users.GET("/me", d.Users.Me, protect)
	users.PATCH("/me", d.Users.UpdateMe, protect)
	users.GET("", d.Users.List, protect, admin)
	users.GET("/:id", d.Users.Get, protect, admin)
	users.PATCH("/:id", d.Users.Update, protect, admin)
	users.DELETE("/:id", d.Users.Delete, protect, admin)

	tours := v1.Group("/tours")
	tours.GET("", d.Tours.List)
	tours.GET("/top-5-cheap", d.Tours.TopCheap)
	tours.GET("/tour-stats", d.Tours.Stats)
	tours.GET("/monthly-plan/:year", d.Tours.MonthlyPlan, protect,
		middleware.RequireRole(model.RoleAdmin, model.RoleLeadGuide, model.RoleGuide))
	tours.GET("/my-tours", d.Tours.MyTours, protect)
	tours.GET("/:id", d.Tours.Get)
	tours.POST("", d.Tours.Create, protect, staff)
	tours.PATCH("/:id", d.Tours.Update, protect, staff)
	tours.DELETE("/:id", d.Tours.Delete, protect, staff)

	tours.GET("/:id/reviews", d.Reviews.ListByTour)
	tours.POST("/:id/reviews", d.Reviews.Create, protect, middleware.RequireRole(model.RoleUser))
	v1.DELETE("/reviews/:id", d.Reviews.Delete, protect)

	bookings := v1.Group("/bookings")
	bookings.POST("/checkout-session", d.Bookings.CreateCheckoutSession, protect)
	bookings.GET("", d.Bookings.List, protect, admin)
	bookings.POST("", d.Bookings.Create, protect, admin)
	bookings.GET("/:id", d.Bookings.Get, protect, admin)
	bookings.PATCH("/:id", d.Bookings.Update, protect, admin)
	bookings.DELETE("/:id", d.Bookings.Delete, protect, admin)
}
