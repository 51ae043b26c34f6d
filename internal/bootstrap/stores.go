package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/repository"
	"github.com/noah-isme/desa-layanan-api/internal/service"
	"github.com/noah-isme/desa-layanan-api/pkg/config"
	"github.com/noah-isme/desa-layanan-api/pkg/database"
)

// Stores bundles the persistence backends selected by STORE_DRIVER.
type Stores struct {
	Driver        string
	Requests      service.ServiceRequestStore
	Notifications service.NotificationStore

	ping    func(ctx context.Context) error
	closers []func(ctx context.Context) error
}

// OpenStores connects the configured driver and returns repositories backed by it.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return mongoStores(ctx, client, db, logger)
	case config.StoreDriverPostgres, "":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgresStores(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func postgresStores(db *sqlx.DB) *Stores {
	return &Stores{
		Driver:        config.StoreDriverPostgres,
		Requests:      repository.NewServiceRequestRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		ping:          db.PingContext,
		closers:       []func(context.Context) error{func(context.Context) error { return db.Close() }},
	}
}

func mongoStores(ctx context.Context, client *mongo.Client, db *mongo.Database, logger *zap.Logger) (*Stores, error) {
	requests := repository.NewMongoServiceRequestRepository(db)
	notifications := repository.NewMongoNotificationRepository(db)

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := multierr.Combine(requests.EnsureIndexes(indexCtx), notifications.EnsureIndexes(indexCtx)); err != nil {
		// Listings fall back to unordered reads until the indexes exist.
		logger.Warn("failed to ensure mongo indexes", zap.Error(err))
	}

	return &Stores{
		Driver:        config.StoreDriverMongo,
		Requests:      requests,
		Notifications: notifications,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		closers: []func(context.Context) error{client.Disconnect},
	}, nil
}

// Ping checks the backing store is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return fmt.Errorf("store not configured")
	}
	return s.ping(ctx)
}

// Close releases every connection, combining failures.
func (s *Stores) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var err error
	for _, closeFn := range s.closers {
		err = multierr.Append(err, closeFn(ctx))
	}
	return err
}
