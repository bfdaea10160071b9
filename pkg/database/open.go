package database

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
)

// Storage bundles what Open wires up
type Storage struct {
	Store   *Store
	Configs *GuildConfigCache
	// DB is nil for in-memory storage
	DB *Database
}

// Open builds the configured backend with its store and guild config cache.
// A MongoDB that is unreachable at startup is retried in the background.
func Open(cfg *config.Config) (*Storage, error) {
	var (
		backend Backend
		db      *Database
	)

	switch cfg.StorageBackend {
	case "memory":
		logger.Warn("Usando almacenamiento en memoria, las infracciones no sobrevivirán a un reinicio", "DB")
		backend = NewMemoryBackend()
	case "", "mongo":
		var err error
		db, err = Init(cfg.MongoDBURL, cfg.DBName)
		if err != nil {
			logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "DB")
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := db.EnsureIndexes(ctx); err != nil {
				logger.Warn("No se pudieron crear los índices: "+err.Error(), "DB")
			}
			cancel()
		}
		backend = NewMongoBackend(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	store, err := NewStore(backend, StoreOptions{CacheSize: cfg.CacheSize})
	if err != nil {
		return nil, err
	}
	configs := NewGuildConfigCache(backend)
	if err := configs.Refresh(context.Background()); err != nil {
		logger.Warn("Caché de configuraciones vacía al iniciar: "+err.Error(), "DB")
	}

	return &Storage{Store: store, Configs: configs, DB: db}, nil
}

// Status reports the storage connection the way Database.GetStatus does
func (s *Storage) Status() (string, bool) {
	if s.DB == nil {
		return "🟣 En memoria", true
	}
	return s.DB.GetStatus()
}

// Close stops the config refresher and disconnects the database
func (s *Storage) Close() error {
	s.Configs.StopAutoRefresh()
	if s.DB == nil {
		return nil
	}
	return s.DB.Disconnect()
}
