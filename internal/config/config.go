// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. The struct is built once at startup and passed down to
// the components that need it; nothing mutates it afterwards, which keeps tests
// free to construct their own instances with distinct secrets.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	DBMaxOpenConns       int // connection pool ceiling
	DBMaxIdleConns       int // idle connections kept warm
	DBConnMaxLifetimeMin int // connection recycle age in minutes
	JWTSecret     string // secret used to sign session tokens
	SessionTTLMin int    // session token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing

	ClientBaseURL string // origin of the browsing client, used for CORS and checkout redirects

	PaymentSecretKey     string // API key for the payment processor
	PaymentWebhookSecret string // shared secret verifying webhook signatures
	PaymentAPIBase       string // base URL of the payment processor's REST API
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		DBMaxOpenConns:       envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       envInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: envInt("DB_CONN_MAX_LIFETIME_MIN", 30),
		JWTSecret:     must("JWT_SECRET"),
		SessionTTLMin: mustInt("SESSION_TOKEN_TTL_MIN"),
		BcryptCost:    mustInt("BCRYPT_COST"),

		ClientBaseURL: must("CLIENT_BASE_URL"),

		PaymentSecretKey:     must("PAYMENT_SECRET_KEY"),
		PaymentWebhookSecret: must("PAYMENT_WEBHOOK_SECRET"),
		PaymentAPIBase:       envStr("PAYMENT_API_BASE", "https://api.stripe.com"),
	}
}

// must retrieves the value of a required environment variable. If the variable
// is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
