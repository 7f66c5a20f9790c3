// Package factory opens the user store selected by configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository/mongo"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository/postgres"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository/sqlite"
)

// Supported drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OpenStore connects to the backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (repository.Store, error) {
	logger = logger.With().Str("driver", cfg.Driver).Logger()

	switch cfg.Driver {
	case DriverMongo, "":
		return mongo.NewDB(ctx, cfg.Mongo, logger)
	case DriverPostgres:
		return postgres.NewDB(ctx, cfg.Postgres, logger)
	case DriverSQLite:
		return sqlite.NewDB(ctx, cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
