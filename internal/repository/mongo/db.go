// Package mongo provides the MongoDB user store, the default backend.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// DB wraps a MongoDB client and the users collection.
type DB struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger zerolog.Logger
	users  *userRepository
}

// NewDB connects to MongoDB and verifies the connection with a ping.
func NewDB(ctx context.Context, cfg config.MongoConfig, logger zerolog.Logger) (*DB, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri not provided")
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, domain.Unavailable("connect mongo", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, domain.Unavailable("ping mongo", err)
	}

	logger.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("connected to MongoDB")

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return &DB{
		client: client,
		coll:   coll,
		logger: logger,
		users:  newUserRepository(coll, cfg.Timeout),
	}, nil
}

// Users returns the user repository.
func (db *DB) Users() repository.UserRepository {
	return db.users
}

// EnsureSchema creates the unique index on username.
func (db *DB) EnsureSchema(ctx context.Context) error {
	return ensureIndexes(ctx, db.coll)
}

func ensureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: fieldUsername, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		return domain.Unavailable("create username index", err)
	}
	return nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.client.Ping(ctx, nil); err != nil {
		return domain.Unavailable("ping mongo", err)
	}
	return nil
}

// Close disconnects the client.
func (db *DB) Close(ctx context.Context) error {
	db.logger.Info().Msg("closing MongoDB connection")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}

// Ensure DB implements repository.Store.
var _ repository.Store = (*DB)(nil)
