package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roamio/tour-booking/internal/config"
	"github.com/roamio/tour-booking/internal/database"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			"with password",
			config.Config{DBUser: "app", DBPass: "s3cret", DBHost: "db", DBPort: "3306", DBName: "tours"},
			"app:s3cret@tcp(db:3306)/tours?charset=utf8mb4&parseTime=true&loc=UTC",
		},
		{
			"passwordless local",
			config.Config{DBUser: "root", DBHost: "localhost", DBPort: "3307", DBName: "tours_dev"},
			"root@tcp(localhost:3307)/tours_dev?charset=utf8mb4&parseTime=true&loc=UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, database.DSN(tt.cfg))
		})
	}
}
