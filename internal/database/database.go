package database

import (
	"context"
	"fmt"
	"time"

	"catapi/internal/config"
	"catapi/internal/models"
	"catapi/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectTimeout = 10 * time.Second

// Store bundles the repositories of one backend with its lifecycle.
type Store struct {
	Users  repositories.UserRepository
	Cats   repositories.CatRepository
	Driver string

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Connect opens the backend selected by cfg.DBDriver.
func Connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		return ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverPostgres:
		return OpenGORM(postgres.Open(cfg.DatabaseDSN), config.DriverPostgres)
	case config.DriverSQLite:
		return OpenGORM(sqlite.Open(cfg.DatabaseDSN), config.DriverSQLite)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// ConnectMongo connects to MongoDB and ensures the collection indexes.
func ConnectMongo(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(dbName)
	users := repositories.NewMongoUserRepository(db)
	cats := repositories.NewMongoCatRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := cats.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	zap.L().Info("connected to mongo", zap.String("database", dbName))

	return &Store{
		Users:  users,
		Cats:   cats,
		Driver: config.DriverMongo,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: client.Disconnect,
	}, nil
}

// OpenGORM opens a relational backend and migrates the schema.
func OpenGORM(dialector gorm.Dialector, driver string) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Cat{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s connection pool: %w", driver, err)
	}
	zap.L().Info("connected to relational database", zap.String("driver", driver))

	return &Store{
		Users:  repositories.NewGORMUserRepository(db),
		Cats:   repositories.NewGORMCatRepository(db),
		Driver: driver,
		ping:   sqlDB.PingContext,
		close: func(context.Context) error {
			return sqlDB.Close()
		},
	}, nil
}

// NewMemoryStore returns a store backed by in-memory repositories.
func NewMemoryStore() *Store {
	return &Store{
		Users:  repositories.NewMemoryUserRepository(),
		Cats:   repositories.NewMemoryCatRepository(),
		Driver: config.DriverMemory,
	}
}
