package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/config"
	"github.com/roamio/tour-booking/internal/database"
	"github.com/roamio/tour-booking/internal/handler"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/payment"
	"github.com/roamio/tour-booking/internal/queue"
	"github.com/roamio/tour-booking/internal/repository"
	"github.com/roamio/tour-booking/internal/router"
	"github.com/roamio/tour-booking/internal/service"
)

func main() {
	// .env is optional; in containers configuration arrives as real env vars.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	go queue.StartAlertConsumer()

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)

	mailer := service.Mailer{ClientBaseURL: cfg.ClientBaseURL}
	payClient := payment.NewClient(cfg.PaymentAPIBase, cfg.PaymentSecretKey)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.ErrorHandler(cfg.Env)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.ClientBaseURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowCredentials: true,
	}))

	router.Register(e, router.Deps{
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),

		Auth:    handler.NewAuthHandler(cfg, users, mailer),
		Users:   handler.NewUserHandler(users),
		Tours:   handler.NewTourHandler(tours),
		Reviews: handler.NewReviewHandler(reviews, tours),
		Bookings: handler.NewBookingHandler(cfg, tours, users, bookings,
			payClient, service.AlertPublisher{}),
	})

	log.Printf("listening on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}
