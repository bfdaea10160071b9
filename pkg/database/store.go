package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// StoreOptions configures a Store
type StoreOptions struct {
	CacheSize int
	Now       func() time.Time
}

// Store owns the infraction, history and case-counter caches in front of a
// Backend. Every write goes to the backend first and then to the cache under
// the same per-guild lock, so readers never see a cached value the backend
// does not hold.
type Store struct {
	backend     Backend
	infractions *lru.Cache[infractionKey, *models.Infraction]
	histories   *lru.Cache[historyKey, *models.History]
	lastCase    *lru.Cache[string, int64]
	loads       singleflight.Group
	guildLocks  sync.Map
	now         func() time.Time
}

// NewInfraction describes an infraction to create
type NewInfraction struct {
	GuildID  string
	UserID   string
	ModID    string
	Type     models.InfractionType
	Reason   string
	Note     string
	Duration *time.Duration
	Active   bool
	// ID is used as the case id when non-zero instead of allocating one
	ID int64
}

// NewBulkInfraction describes one mass action over several users
type NewBulkInfraction struct {
	GuildID  string
	UserIDs  []string
	ModID    string
	Type     models.InfractionType
	Reason   string
	Note     string
	Duration *time.Duration
	Active   bool
	// IDs are pre-allocated case ids, one per user. Allocated when empty.
	IDs []int64
}

// Changes lists the editable fields of an infraction. Nil fields are left as they are.
type Changes struct {
	Reason   *string
	Note     *string
	Duration *DurationChange
}

// DurationChange sets a new total duration. A nil Duration makes the infraction permanent.
type DurationChange struct {
	Duration *time.Duration
}

// NewStore creates a Store over backend
func NewStore(backend Backend, opts StoreOptions) (*Store, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 5000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	infractions, err := lru.New[infractionKey, *models.Infraction](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	histories, err := lru.New[historyKey, *models.History](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	lastCase, err := lru.New[string, int64](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Store{
		backend:     backend,
		infractions: infractions,
		histories:   histories,
		lastCase:    lastCase,
		now:         opts.Now,
	}, nil
}

// Backend returns the persistence layer behind the store
func (s *Store) Backend() Backend {
	return s.backend
}

func (s *Store) lockGuild(guildID string) func() {
	v, _ := s.guildLocks.LoadOrStore(guildID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Allocate reserves count consecutive case ids for guildID
func (s *Store) Allocate(ctx context.Context, guildID string, count int) ([]int64, error) {
	if count < 1 {
		return nil, fmt.Errorf("allocate %d case ids: count must be positive", count)
	}
	unlock := s.lockGuild(guildID)
	defer unlock()
	return s.allocateLocked(ctx, guildID, count)
}

func (s *Store) allocateLocked(ctx context.Context, guildID string, count int) ([]int64, error) {
	last, ok := s.lastCase.Get(guildID)
	if !ok {
		misc, err := s.backend.LoadMiscData(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("load misc data for guild %s: %w", guildID, err)
		}
		if misc != nil {
			last = misc.LastCaseID
		}
	}

	next := last + int64(count)
	if err := s.backend.SaveMiscData(ctx, &models.MiscData{GuildID: guildID, LastCaseID: next}); err != nil {
		return nil, fmt.Errorf("save misc data for guild %s: %w", guildID, err)
	}
	s.lastCase.Add(guildID, next)

	ids := make([]int64, count)
	for i := range ids {
		ids[i] = last + int64(i) + 1
	}
	return ids, nil
}

func (s *Store) build(guildID, userID, modID string, t models.InfractionType, reason, note string, duration *time.Duration, active bool, id int64, now time.Time) *models.Infraction {
	inf := &models.Infraction{
		GuildID:      guildID,
		InfractionID: id,
		UserID:       userID,
		ModID:        modID,
		Type:         t.Stored(),
		Reason:       reason,
		Note:         note,
		CreatedAt:    now,
		Active:       active && t.Ongoing(),
	}
	if duration != nil && *duration > 0 && t.Ongoing() {
		ends := now.Add(*duration)
		inf.EndsAt = &ends
	}
	return inf
}

// CreateInfraction persists one infraction and records it in the user's history
func (s *Store) CreateInfraction(ctx context.Context, n NewInfraction) (*models.Infraction, error) {
	unlock := s.lockGuild(n.GuildID)
	defer unlock()

	id := n.ID
	if id == 0 {
		ids, err := s.allocateLocked(ctx, n.GuildID, 1)
		if err != nil {
			return nil, err
		}
		id = ids[0]
	}

	inf := s.build(n.GuildID, n.UserID, n.ModID, n.Type, n.Reason, n.Note, n.Duration, n.Active, id, s.now().UTC())
	if err := s.backend.InsertInfractions(ctx, []*models.Infraction{inf}); err != nil {
		return nil, fmt.Errorf("insert infraction #%d: %w", id, err)
	}
	s.infractions.Add(infractionKey{n.GuildID, id}, inf.Clone())

	if err := s.recordLocked(ctx, inf); err != nil {
		return nil, err
	}
	return inf, nil
}

// CreateInfractionsBulk creates one infraction per user sharing a contiguous case range
func (s *Store) CreateInfractionsBulk(ctx context.Context, n NewBulkInfraction) ([]*models.Infraction, error) {
	if len(n.UserIDs) == 0 {
		return nil, nil
	}
	if len(n.IDs) != 0 && len(n.IDs) != len(n.UserIDs) {
		return nil, fmt.Errorf("bulk create: %d ids for %d users", len(n.IDs), len(n.UserIDs))
	}

	unlock := s.lockGuild(n.GuildID)
	defer unlock()

	ids := n.IDs
	if len(ids) == 0 {
		var err error
		if ids, err = s.allocateLocked(ctx, n.GuildID, len(n.UserIDs)); err != nil {
			return nil, err
		}
	}

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	bulk := models.BulkRange{Start: sorted[0], End: sorted[len(sorted)-1]}

	now := s.now().UTC()
	infs := make([]*models.Infraction, len(n.UserIDs))
	for i, userID := range n.UserIDs {
		inf := s.build(n.GuildID, userID, n.ModID, n.Type, n.Reason, n.Note, n.Duration, n.Active, ids[i], now)
		r := bulk
		inf.BulkRange = &r
		infs[i] = inf
	}

	if err := s.backend.InsertInfractions(ctx, infs); err != nil {
		return nil, fmt.Errorf("insert infractions #%d-%d: %w", bulk.Start, bulk.End, err)
	}
	for _, inf := range infs {
		s.infractions.Add(infractionKey{n.GuildID, inf.InfractionID}, inf.Clone())
	}
	for _, inf := range infs {
		if err := s.recordLocked(ctx, inf); err != nil {
			return nil, err
		}
	}
	return infs, nil
}

// recordLocked appends inf to its user's history, creating the history on first use
func (s *Store) recordLocked(ctx context.Context, inf *models.Infraction) error {
	h, err := s.loadHistory(ctx, inf.GuildID, inf.UserID)
	if err != nil {
		return err
	}
	if h == nil {
		h = models.NewHistory(inf.GuildID, inf.UserID)
	}
	h.Add(inf.Type, inf.InfractionID, inf.Active)
	return s.saveHistoryLocked(ctx, h)
}

func (s *Store) saveHistoryLocked(ctx context.Context, h *models.History) error {
	if err := s.backend.SaveHistory(ctx, h); err != nil {
		return fmt.Errorf("save history for user %s: %w", h.UserID, err)
	}
	s.histories.Add(historyKey{h.GuildID, h.UserID}, h.Clone())
	return nil
}

func (s *Store) saveInfractionLocked(ctx context.Context, inf *models.Infraction) error {
	if err := s.backend.SaveInfraction(ctx, inf); err != nil {
		return fmt.Errorf("save infraction #%d: %w", inf.InfractionID, err)
	}
	s.infractions.Add(infractionKey{inf.GuildID, inf.InfractionID}, inf.Clone())
	return nil
}

// loadInfraction reads through the cache. It returns nil when the infraction does not exist.
func (s *Store) loadInfraction(ctx context.Context, guildID string, id int64) (*models.Infraction, error) {
	key := infractionKey{guildID, id}
	if inf, ok := s.infractions.Get(key); ok {
		return inf.Clone(), nil
	}

	v, err, _ := s.loads.Do(fmt.Sprintf("inf:%s:%d", guildID, id), func() (interface{}, error) {
		inf, err := s.backend.FindInfraction(ctx, guildID, id)
		if err != nil || inf == nil {
			return inf, err
		}
		s.infractions.ContainsOrAdd(key, inf.Clone())
		return inf, nil
	})
	if err != nil {
		return nil, fmt.Errorf("find infraction #%d: %w", id, err)
	}
	inf, _ := v.(*models.Infraction)
	if inf == nil {
		return nil, nil
	}
	return inf.Clone(), nil
}

// loadHistory reads through the cache. It returns nil when the user has no history.
func (s *Store) loadHistory(ctx context.Context, guildID, userID string) (*models.History, error) {
	key := historyKey{guildID, userID}
	if h, ok := s.histories.Get(key); ok {
		return h.Clone(), nil
	}

	v, err, _ := s.loads.Do("hist:"+guildID+":"+userID, func() (interface{}, error) {
		h, err := s.backend.FindHistory(ctx, guildID, userID)
		if err != nil || h == nil {
			return h, err
		}
		s.histories.ContainsOrAdd(key, h.Clone())
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("find history for user %s: %w", userID, err)
	}
	h, _ := v.(*models.History)
	if h == nil {
		return nil, nil
	}
	return h.Clone(), nil
}

// GetInfraction returns the infraction or an InfractionNotFoundError
func (s *Store) GetInfraction(ctx context.Context, guildID string, id int64) (*models.Infraction, error) {
	inf, err := s.loadInfraction(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	if inf == nil {
		return nil, &moderrors.InfractionNotFoundError{InfractionID: id}
	}
	return inf, nil
}

// GetInfractionsBulk returns the infractions in ids order, failing on the first missing id
func (s *Store) GetInfractionsBulk(ctx context.Context, guildID string, ids []int64) ([]*models.Infraction, error) {
	found := make(map[int64]*models.Infraction, len(ids))
	var missing []int64
	for _, id := range ids {
		if inf, ok := s.infractions.Get(infractionKey{guildID, id}); ok {
			found[id] = inf.Clone()
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		loaded, err := s.backend.FindInfractions(ctx, guildID, missing)
		if err != nil {
			return nil, fmt.Errorf("find infractions: %w", err)
		}
		for _, inf := range loaded {
			s.infractions.ContainsOrAdd(infractionKey{guildID, inf.InfractionID}, inf.Clone())
			found[inf.InfractionID] = inf
		}
	}

	out := make([]*models.Infraction, 0, len(ids))
	for _, id := range ids {
		inf, ok := found[id]
		if !ok {
			return nil, &moderrors.InfractionNotFoundError{InfractionID: id}
		}
		out = append(out, inf)
	}
	return out, nil
}

// GetHistory returns the user's history, or nil when they have none
func (s *Store) GetHistory(ctx context.Context, guildID, userID string) (*models.History, error) {
	return s.loadHistory(ctx, guildID, userID)
}

// DeactivateInfractions lifts every active infraction of type t for the user
// that was created before now, returning how many were lifted.
func (s *Store) DeactivateInfractions(ctx context.Context, guildID, userID string, t models.InfractionType) (int, error) {
	unlock := s.lockGuild(guildID)
	defer unlock()

	h, err := s.loadHistory(ctx, guildID, userID)
	if err != nil || h == nil {
		return 0, err
	}

	now := s.now()
	count := 0
	for _, id := range append([]int64(nil), h.Active...) {
		inf, err := s.loadInfraction(ctx, guildID, id)
		if err != nil {
			return count, err
		}
		if inf == nil {
			// dangling reference, drop it
			h.Deactivate(id)
			continue
		}
		if inf.Type != t.Stored() || inf.CreatedAt.After(now) {
			continue
		}
		inf.Active = false
		if err := s.saveInfractionLocked(ctx, inf); err != nil {
			return count, err
		}
		h.Deactivate(id)
		count++
	}

	if count > 0 {
		if err := s.saveHistoryLocked(ctx, h); err != nil {
			return count, err
		}
	}
	return count, nil
}

// apply mutates inf with changes. Durations are measured from CreatedAt.
func apply(inf *models.Infraction, changes Changes) {
	if changes.Reason != nil {
		inf.Reason = *changes.Reason
	}
	if changes.Note != nil {
		inf.Note = *changes.Note
	}
	if changes.Duration != nil {
		if d := changes.Duration.Duration; d != nil {
			ends := inf.CreatedAt.Add(*d)
			inf.EndsAt = &ends
		} else {
			inf.EndsAt = nil
		}
	}
}

// EditInfraction applies changes to the stored infraction and returns the updated copy
func (s *Store) EditInfraction(ctx context.Context, inf *models.Infraction, changes Changes) (*models.Infraction, error) {
	unlock := s.lockGuild(inf.GuildID)
	defer unlock()

	current, err := s.loadInfraction(ctx, inf.GuildID, inf.InfractionID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &moderrors.InfractionNotFoundError{InfractionID: inf.InfractionID}
	}

	apply(current, changes)
	if err := s.saveInfractionLocked(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// EditInfractions applies the same changes to several infractions of one guild
func (s *Store) EditInfractions(ctx context.Context, guildID string, ids []int64, changes Changes) ([]*models.Infraction, error) {
	unlock := s.lockGuild(guildID)
	defer unlock()

	infs := make([]*models.Infraction, 0, len(ids))
	for _, id := range ids {
		inf, err := s.loadInfraction(ctx, guildID, id)
		if err != nil {
			return nil, err
		}
		if inf == nil {
			return nil, &moderrors.InfractionNotFoundError{InfractionID: id}
		}
		infs = append(infs, inf)
	}

	for _, inf := range infs {
		apply(inf, changes)
		if err := s.saveInfractionLocked(ctx, inf); err != nil {
			return nil, err
		}
	}
	return infs, nil
}

// SetMessageID links the rendered modlog message to the given infractions
func (s *Store) SetMessageID(ctx context.Context, guildID, messageID string, ids ...int64) error {
	unlock := s.lockGuild(guildID)
	defer unlock()

	if err := s.backend.SetMessageID(ctx, guildID, ids, messageID); err != nil {
		return fmt.Errorf("set message id: %w", err)
	}
	for _, id := range ids {
		key := infractionKey{guildID, id}
		if inf, ok := s.infractions.Get(key); ok {
			updated := inf.Clone()
			updated.MessageID = messageID
			s.infractions.Add(key, updated)
		}
	}
	return nil
}

// HasActiveInfraction reports whether the user has an infraction of type t in force
func (s *Store) HasActiveInfraction(ctx context.Context, guildID, userID string, t models.InfractionType) (bool, error) {
	h, err := s.loadHistory(ctx, guildID, userID)
	if err != nil || h == nil {
		return false, err
	}
	return h.HasActive(t), nil
}

// LatestActive returns the newest active infraction of type t, or nil
func (s *Store) LatestActive(ctx context.Context, guildID, userID string, t models.InfractionType) (*models.Infraction, error) {
	h, err := s.loadHistory(ctx, guildID, userID)
	if err != nil || h == nil {
		return nil, err
	}

	var latest int64
	for _, id := range h.IDs(t) {
		if h.IsActive(id) && id > latest {
			latest = id
		}
	}
	if latest == 0 {
		return nil, nil
	}
	return s.GetInfraction(ctx, guildID, latest)
}

// RemoveFromHistory strips an infraction from its user's history. The
// infraction document stays, but is no longer in force.
func (s *Store) RemoveFromHistory(ctx context.Context, guildID string, id int64) (*models.Infraction, error) {
	unlock := s.lockGuild(guildID)
	defer unlock()

	inf, err := s.loadInfraction(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	if inf == nil {
		return nil, &moderrors.InfractionNotFoundError{InfractionID: id}
	}

	h, err := s.loadHistory(ctx, guildID, inf.UserID)
	if err != nil {
		return nil, err
	}
	if h == nil || !h.Remove(inf.Type, id) {
		return nil, &moderrors.InfractionNotFoundError{InfractionID: id}
	}
	if err := s.saveHistoryLocked(ctx, h); err != nil {
		return nil, err
	}

	if inf.Active {
		inf.Active = false
		if err := s.saveInfractionLocked(ctx, inf); err != nil {
			return nil, err
		}
	}
	return inf, nil
}

// DeleteHistory clears a user's history. Their infractions are kept.
func (s *Store) DeleteHistory(ctx context.Context, guildID, userID string) error {
	unlock := s.lockGuild(guildID)
	defer unlock()

	h, err := s.loadHistory(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if h == nil {
		return &moderrors.HistoryNotFoundError{UserID: userID}
	}
	if err := s.backend.DeleteHistory(ctx, guildID, userID); err != nil {
		return fmt.Errorf("delete history for user %s: %w", userID, err)
	}
	s.histories.Remove(historyKey{guildID, userID})
	return nil
}

// Search returns the guild's infractions matching q, ordered by case id
func (s *Store) Search(ctx context.Context, guildID string, q SearchQuery) ([]*models.Infraction, error) {
	return s.backend.SearchInfractions(ctx, guildID, q)
}

// Count returns how many of the guild's infractions match q
func (s *Store) Count(ctx context.Context, guildID string, q SearchQuery) (int64, error) {
	return s.backend.CountInfractions(ctx, guildID, q)
}

// ActiveExpiring returns every active infraction ending at or before before
func (s *Store) ActiveExpiring(ctx context.Context, before time.Time) ([]*models.Infraction, error) {
	return s.backend.ActiveExpiring(ctx, before)
}
