package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/models"
)

// GuildConfigCache keeps every guild's modlog settings in memory and
// reloads them from the backend on an interval.
type GuildConfigCache struct {
	backend     Backend
	entries     map[string]*models.GuildConfig
	mu          sync.RWMutex
	stopRefresh chan struct{}
	refreshing  bool
}

// NewGuildConfigCache creates an empty cache over backend
func NewGuildConfigCache(backend Backend) *GuildConfigCache {
	return &GuildConfigCache{
		backend:     backend,
		entries:     make(map[string]*models.GuildConfig),
		stopRefresh: make(chan struct{}),
	}
}

// Refresh reloads all guild configs from the backend
func (c *GuildConfigCache) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	configs, err := c.backend.AllGuildConfigs(ctx)
	if err != nil {
		logger.Error("GuildConfigCache: Error cargando configuraciones: "+err.Error(), "GuildConfig")
		return err
	}

	entries := make(map[string]*models.GuildConfig, len(configs))
	for _, cfg := range configs {
		entries[cfg.GuildID] = cfg
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	logger.Info(fmt.Sprintf("GuildConfigCache: Caché actualizada con %d servidores", len(entries)), "GuildConfig")
	return nil
}

// StartAutoRefresh reloads the cache every interval until StopAutoRefresh.
// A running refresher is replaced.
func (c *GuildConfigCache) StartAutoRefresh(interval time.Duration) {
	c.mu.Lock()
	if c.refreshing {
		close(c.stopRefresh)
	}
	c.refreshing = true
	c.stopRefresh = make(chan struct{})
	stopChan := c.stopRefresh
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.Refresh(context.Background()); err != nil {
					logger.Error("GuildConfigCache: Auto-refresh falló: "+err.Error(), "GuildConfig")
				}
			case <-stopChan:
				return
			}
		}
	}()
}

// StopAutoRefresh stops the automatic cache refresh
func (c *GuildConfigCache) StopAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshing {
		close(c.stopRefresh)
		c.refreshing = false
	}
}

// GetConfig returns the guild's settings, falling back to defaults. The
// returned value is a copy.
func (c *GuildConfigCache) GetConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	c.mu.RLock()
	cfg, ok := c.entries[guildID]
	c.mu.RUnlock()
	if ok {
		cp := *cfg
		return &cp, nil
	}

	cfg, err := c.backend.FindGuildConfig(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load config for guild %s: %w", guildID, err)
	}
	if cfg == nil {
		cfg = models.DefaultGuildConfig(guildID)
	}

	c.mu.Lock()
	c.entries[guildID] = cfg
	c.mu.Unlock()

	cp := *cfg
	return &cp, nil
}

// Update applies fn to the guild's settings and persists the result
func (c *GuildConfigCache) Update(ctx context.Context, guildID string, fn func(cfg *models.GuildConfig)) (*models.GuildConfig, error) {
	cfg, err := c.GetConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	fn(cfg)

	if err := c.backend.SaveGuildConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save config for guild %s: %w", guildID, err)
	}

	stored := *cfg
	c.mu.Lock()
	c.entries[guildID] = &stored
	c.mu.Unlock()
	return cfg, nil
}

// Size returns the number of guilds in the cache
func (c *GuildConfigCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
