package database

import (
	"context"
	"testing"

	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/models"
)

func TestOpenMemory(t *testing.T) {
	storage, err := Open(&config.Config{StorageBackend: "memory", CacheSize: 10})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer storage.Close()

	if storage.DB != nil {
		t.Errorf("DB = %v, want nil for memory storage", storage.DB)
	}
	if status, ok := storage.Status(); !ok || status == "" {
		t.Errorf("Status() = %q, %v, want a non-empty online status", status, ok)
	}

	ctx := context.Background()
	inf, err := storage.Store.CreateInfraction(ctx, NewInfraction{
		GuildID: "1", UserID: "100", ModID: "5", Type: models.TypeWarn, Reason: "spam",
	})
	if err != nil {
		t.Fatalf("CreateInfraction() error = %v", err)
	}
	if inf.InfractionID != 1 {
		t.Errorf("InfractionID = %d, want 1", inf.InfractionID)
	}

	cfg, err := storage.Configs.Update(ctx, "1", func(c *models.GuildConfig) { c.MuteRoleID = "9" })
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if cfg.MuteRoleID != "9" {
		t.Errorf("MuteRoleID = %q, want 9", cfg.MuteRoleID)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(&config.Config{StorageBackend: "redis"}); err == nil {
		t.Error("Open(redis) error = nil, want an error")
	}
}
