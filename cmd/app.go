package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CUknot/chat_backend/cache"
	"github.com/CUknot/chat_backend/config"
	"github.com/CUknot/chat_backend/database"
	"github.com/CUknot/chat_backend/logging"
	"github.com/CUknot/chat_backend/services"
	"github.com/CUknot/chat_backend/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app holds the process-wide clients. They are created once by bootstrap and
// released by close.
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	redis   *redis.Client
	gateway storage.Gateway

	users    *services.Users
	ledger   *services.Ledger
	messages *services.MessageStore
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.New(cfg.LogFormat)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	rdb, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.CacheTimeout)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		// The cache is optional at runtime; reads fall through to the database.
		slog.Warn("Redis unreachable, continuing without cache", "error", err)
	}

	gateway, err := newGateway(cfg)
	if err == nil {
		err = gateway.EnsureContainer(ctx)
	}
	if err != nil {
		_ = rdb.Close()
		_ = database.Close(db)
		return nil, fmt.Errorf("object store unavailable: %w", err)
	}

	c := cache.New(cache.NewRedisBackend(rdb), cache.Config{
		Prefix:  cache.DefaultConfig().Prefix,
		TTL:     cfg.CacheTTL,
		Timeout: cfg.CacheTimeout,
	})

	return &app{
		cfg:      cfg,
		db:       db,
		redis:    rdb,
		gateway:  gateway,
		users:    services.NewUsers(db, cfg.StoreTimeout),
		ledger:   services.NewLedger(db, c, cfg.StoreTimeout),
		messages: services.NewMessageStore(db, c, gateway, cfg.StoreTimeout),
	}, nil
}

func newGateway(cfg *config.Config) (storage.Gateway, error) {
	switch cfg.StorageBackend {
	case config.StorageDisk:
		return storage.NewDiskGateway(cfg.UploadDir, cfg.PublicBaseURL, cfg.SessionSecret), nil
	case config.StorageMinio:
		return storage.NewMinioGateway(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.MinioBucket,
			Timeout:   cfg.StoreTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (a *app) close() error {
	return errors.Join(a.redis.Close(), database.Close(a.db))
}
