package database

import (
	"context"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
)

// Collection names
const (
	CollectionInfractions  = "infractions"
	CollectionHistories    = "histories"
	CollectionMiscData     = "misc_data"
	CollectionGuildConfigs = "guild_configs"
)

// Backend is the persistence layer behind the Store. Lookups that find
// nothing return a nil document and a nil error.
type Backend interface {
	FindInfraction(ctx context.Context, guildID string, id int64) (*models.Infraction, error)
	FindInfractions(ctx context.Context, guildID string, ids []int64) ([]*models.Infraction, error)
	InsertInfractions(ctx context.Context, infs []*models.Infraction) error
	SaveInfraction(ctx context.Context, inf *models.Infraction) error
	SetMessageID(ctx context.Context, guildID string, ids []int64, messageID string) error
	ActiveExpiring(ctx context.Context, before time.Time) ([]*models.Infraction, error)
	SearchInfractions(ctx context.Context, guildID string, q SearchQuery) ([]*models.Infraction, error)
	CountInfractions(ctx context.Context, guildID string, q SearchQuery) (int64, error)

	FindHistory(ctx context.Context, guildID, userID string) (*models.History, error)
	SaveHistory(ctx context.Context, h *models.History) error
	DeleteHistory(ctx context.Context, guildID, userID string) error

	LoadMiscData(ctx context.Context, guildID string) (*models.MiscData, error)
	SaveMiscData(ctx context.Context, m *models.MiscData) error

	FindGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	SaveGuildConfig(ctx context.Context, c *models.GuildConfig) error
	AllGuildConfigs(ctx context.Context) ([]*models.GuildConfig, error)
}

// SearchQuery filters a guild's infractions. Set criteria are joined with
// AND, or with OR when Or is set; Not negates the combined result. A query
// with no criteria matches everything.
type SearchQuery struct {
	Keywords []string
	UserID   string
	ModID    string
	Type     models.InfractionType
	Active   *bool
	Or       bool
	Not      bool
}

// Empty reports whether the query sets no criteria
func (q SearchQuery) Empty() bool {
	return len(q.Keywords) == 0 && q.UserID == "" && q.ModID == "" && q.Type == "" && q.Active == nil
}

// Matches evaluates the query against one infraction
func (q SearchQuery) Matches(inf *models.Infraction) bool {
	if q.Empty() {
		return true
	}

	var results []bool
	if len(q.Keywords) > 0 {
		reason, note := strings.ToLower(inf.Reason), strings.ToLower(inf.Note)
		hit := false
		for _, kw := range q.Keywords {
			kw = strings.ToLower(kw)
			if strings.Contains(reason, kw) || strings.Contains(note, kw) {
				hit = true
				break
			}
		}
		results = append(results, hit)
	}
	if q.UserID != "" {
		results = append(results, inf.UserID == q.UserID)
	}
	if q.ModID != "" {
		results = append(results, inf.ModID == q.ModID)
	}
	if q.Type != "" {
		results = append(results, inf.Type == q.Type.Stored())
	}
	if q.Active != nil {
		results = append(results, inf.Active == *q.Active)
	}

	matched := !q.Or
	for _, r := range results {
		if q.Or && r {
			matched = true
			break
		}
		if !q.Or && !r {
			matched = false
			break
		}
	}
	return matched != q.Not
}
