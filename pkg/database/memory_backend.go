package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type infractionKey struct {
	guildID string
	id      int64
}

type historyKey struct {
	guildID string
	userID  string
}

// MemoryBackend keeps every document in process memory. It backs tests and
// the storageBackend=memory mode.
type MemoryBackend struct {
	mu          sync.RWMutex
	infractions map[infractionKey]*models.Infraction
	histories   map[historyKey]*models.History
	misc        map[string]*models.MiscData
	configs     map[string]*models.GuildConfig
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		infractions: make(map[infractionKey]*models.Infraction),
		histories:   make(map[historyKey]*models.History),
		misc:        make(map[string]*models.MiscData),
		configs:     make(map[string]*models.GuildConfig),
	}
}

func (m *MemoryBackend) FindInfraction(_ context.Context, guildID string, id int64) (*models.Infraction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inf, ok := m.infractions[infractionKey{guildID, id}]; ok {
		return inf.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryBackend) FindInfractions(_ context.Context, guildID string, ids []int64) ([]*models.Infraction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Infraction, 0, len(ids))
	for _, id := range ids {
		if inf, ok := m.infractions[infractionKey{guildID, id}]; ok {
			out = append(out, inf.Clone())
		}
	}
	return out, nil
}

func (m *MemoryBackend) InsertInfractions(_ context.Context, infs []*models.Infraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inf := range infs {
		if inf.GlobalID.IsZero() {
			inf.GlobalID = primitive.NewObjectID()
		}
		m.infractions[infractionKey{inf.GuildID, inf.InfractionID}] = inf.Clone()
	}
	return nil
}

func (m *MemoryBackend) SaveInfraction(_ context.Context, inf *models.Infraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infractions[infractionKey{inf.GuildID, inf.InfractionID}] = inf.Clone()
	return nil
}

func (m *MemoryBackend) SetMessageID(_ context.Context, guildID string, ids []int64, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if inf, ok := m.infractions[infractionKey{guildID, id}]; ok {
			inf.MessageID = messageID
		}
	}
	return nil
}

func (m *MemoryBackend) ActiveExpiring(_ context.Context, before time.Time) ([]*models.Infraction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Infraction
	for _, inf := range m.infractions {
		if inf.Active && inf.EndsAt != nil && !inf.EndsAt.After(before) {
			out = append(out, inf.Clone())
		}
	}
	sortInfractions(out)
	return out, nil
}

func (m *MemoryBackend) SearchInfractions(_ context.Context, guildID string, q SearchQuery) ([]*models.Infraction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Infraction
	for key, inf := range m.infractions {
		if key.guildID == guildID && q.Matches(inf) {
			out = append(out, inf.Clone())
		}
	}
	sortInfractions(out)
	return out, nil
}

func (m *MemoryBackend) CountInfractions(ctx context.Context, guildID string, q SearchQuery) (int64, error) {
	found, err := m.SearchInfractions(ctx, guildID, q)
	return int64(len(found)), err
}

func (m *MemoryBackend) FindHistory(_ context.Context, guildID, userID string) (*models.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.histories[historyKey{guildID, userID}]; ok {
		return h.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryBackend) SaveHistory(_ context.Context, h *models.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[historyKey{h.GuildID, h.UserID}] = h.Clone()
	return nil
}

func (m *MemoryBackend) DeleteHistory(_ context.Context, guildID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, historyKey{guildID, userID})
	return nil
}

func (m *MemoryBackend) LoadMiscData(_ context.Context, guildID string) (*models.MiscData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if misc, ok := m.misc[guildID]; ok {
		c := *misc
		return &c, nil
	}
	return nil, nil
}

func (m *MemoryBackend) SaveMiscData(_ context.Context, misc *models.MiscData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *misc
	m.misc[misc.GuildID] = &c
	return nil
}

func (m *MemoryBackend) FindGuildConfig(_ context.Context, guildID string) (*models.GuildConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cfg, ok := m.configs[guildID]; ok {
		c := *cfg
		return &c, nil
	}
	return nil, nil
}

func (m *MemoryBackend) SaveGuildConfig(_ context.Context, cfg *models.GuildConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cfg
	m.configs[cfg.GuildID] = &c
	return nil
}

func (m *MemoryBackend) AllGuildConfigs(_ context.Context) ([]*models.GuildConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.GuildConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		c := *cfg
		out = append(out, &c)
	}
	return out, nil
}

func sortInfractions(infs []*models.Infraction) {
	sort.Slice(infs, func(i, j int) bool {
		if infs[i].GuildID != infs[j].GuildID {
			return infs[i].GuildID < infs[j].GuildID
		}
		return infs[i].InfractionID < infs[j].InfractionID
	})
}
