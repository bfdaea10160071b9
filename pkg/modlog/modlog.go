// Package modlog records infractions and renders them to a guild's modlog channel.
package modlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/database"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/models"
)

// MessageService sends and edits plain text messages in a channel
type MessageService interface {
	SendMessage(ctx context.Context, channelID, content string) (string, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (string, error)
}

// ConfigSource returns a guild's settings
type ConfigSource interface {
	GetConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
}

// Options configures a Modlog
type Options struct {
	// Bot is credited with automatic actions
	Bot   User
	Now   func() time.Time
	Sinks []EventSink
}

// Modlog turns events into stored infractions and rendered modlog messages
type Modlog struct {
	store    *database.Store
	messages MessageService
	configs  ConfigSource
	now      func() time.Time

	mu    sync.RWMutex
	bot   User
	sinks []EventSink
}

// New creates a Modlog
func New(store *database.Store, messages MessageService, configs ConfigSource, opts Options) *Modlog {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Modlog{
		store:    store,
		messages: messages,
		configs:  configs,
		bot:      opts.Bot,
		now:      opts.Now,
		sinks:    opts.Sinks,
	}
}

// Store returns the infraction store behind the modlog
func (m *Modlog) Store() *database.Store {
	return m.store
}

// SetBot sets the account credited with automatic actions
func (m *Modlog) SetBot(u User) {
	m.mu.Lock()
	m.bot = u
	m.mu.Unlock()
}

// Bot returns the account credited with automatic actions
func (m *Modlog) Bot() User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bot
}

// AddSink registers a sink for rendered records
func (m *Modlog) AddSink(s EventSink) {
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

func (m *Modlog) publish(ctx context.Context, rec Record) {
	rec.At = m.now().UTC()
	recordsPublished.WithLabelValues(string(rec.Category)).Inc()

	m.mu.RLock()
	sinks := append([]EventSink(nil), m.sinks...)
	m.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, rec); err != nil {
			logger.WithFields(logger.Fields{"guild": rec.GuildID, "kind": rec.Kind}, "Modlog").
				Warn("No se pudo publicar el evento: " + err.Error())
		}
	}
}

// channel returns the guild's modlog channel, or "" when none is configured
func (m *Modlog) channel(ctx context.Context, guildID string) (string, error) {
	cfg, err := m.configs.GetConfig(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("load config for guild %s: %w", guildID, err)
	}
	if !cfg.HasModlog() {
		return "", nil
	}
	return cfg.ModlogChannelID, nil
}

// Dispatch handles any event. Guilds without a modlog channel are skipped.
func (m *Modlog) Dispatch(ctx context.Context, ev Event) error {
	var err error
	switch e := ev.(type) {
	case LogEvent:
		_, err = m.Log(ctx, e)
	case SmallLogEvent:
		err = m.SmallLog(ctx, e)
	case MassActionLogEvent:
		_, err = m.MassLog(ctx, e)
	default:
		err = fmt.Errorf("unknown event %T", ev)
	}
	if err != nil {
		eventFailures.Inc()
	}
	return err
}

// Log creates the infraction for ev and posts its message. It returns nil
// without error when the guild has no modlog channel.
func (m *Modlog) Log(ctx context.Context, ev LogEvent) (*models.Infraction, error) {
	spec, ok := logSpecs[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown log kind %q", ev.Kind)
	}
	channelID, err := m.channel(ctx, ev.GuildID)
	if err != nil || channelID == "" {
		return nil, err
	}

	mod := ev.Moderator
	if spec.bot {
		bot := m.Bot()
		mod = &bot
	}
	duration := ev.Duration
	if !spec.timed {
		duration = nil
	}

	inf, err := m.store.CreateInfraction(ctx, database.NewInfraction{
		GuildID:  ev.GuildID,
		UserID:   ev.User.ID,
		ModID:    userID(mod),
		Type:     spec.typ,
		Reason:   ev.Reason,
		Note:     ev.Note,
		Duration: duration,
		Active:   spec.active,
	})
	if err != nil {
		return nil, err
	}

	var durText string
	if duration != nil && *duration > 0 {
		durText = ExactDuration(*duration)
	}
	content := FormatLog(spec.emoji, spec.title, inf.InfractionID, durText, ev.User, mod, ev.Reason, ev.Note)

	msgID, err := m.messages.SendMessage(ctx, channelID, content)
	if err != nil {
		return inf, fmt.Errorf("send modlog message for #%d: %w", inf.InfractionID, err)
	}
	if err := m.store.SetMessageID(ctx, ev.GuildID, msgID, inf.InfractionID); err != nil {
		return inf, err
	}
	inf.MessageID = msgID

	m.publish(ctx, Record{
		Category:      CategoryLog,
		Kind:          string(ev.Kind),
		GuildID:       ev.GuildID,
		UserIDs:       []string{ev.User.ID},
		ModeratorID:   userID(mod),
		InfractionIDs: []int64{inf.InfractionID},
		MessageID:     msgID,
		Content:       content,
	})
	return inf, nil
}

// SmallLog posts a one-line notice. No infraction is created.
func (m *Modlog) SmallLog(ctx context.Context, ev SmallLogEvent) error {
	spec, ok := smallSpecs[ev.Kind]
	if !ok {
		return fmt.Errorf("unknown small log kind %q", ev.Kind)
	}
	channelID, err := m.channel(ctx, ev.GuildID)
	if err != nil || channelID == "" {
		return err
	}

	var content string
	if ev.Kind == SmallExternalBan {
		content = FormatExternalBan(ev.User, ev.Moderator)
	} else {
		content = FormatSmall(spec.emoji, spec.title, ev.User, ev.InfractionID)
	}

	msgID, err := m.messages.SendMessage(ctx, channelID, content)
	if err != nil {
		return fmt.Errorf("send %s notice: %w", ev.Kind, err)
	}

	rec := Record{
		Category:    CategorySmall,
		Kind:        string(ev.Kind),
		GuildID:     ev.GuildID,
		UserIDs:     []string{ev.User.ID},
		ModeratorID: userID(ev.Moderator),
		MessageID:   msgID,
		Content:     content,
	}
	if ev.InfractionID != 0 {
		rec.InfractionIDs = []int64{ev.InfractionID}
	}
	m.publish(ctx, rec)
	return nil
}

// MassLog creates one infraction per user over a contiguous case range and
// posts a single message linked to all of them.
func (m *Modlog) MassLog(ctx context.Context, ev MassActionLogEvent) ([]*models.Infraction, error) {
	spec, ok := massSpecs[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown mass action kind %q", ev.Kind)
	}
	if len(ev.Users) == 0 {
		return nil, nil
	}
	channelID, err := m.channel(ctx, ev.GuildID)
	if err != nil || channelID == "" {
		return nil, err
	}

	userIDs := make([]string, len(ev.Users))
	for i, u := range ev.Users {
		userIDs[i] = u.ID
	}

	infs, err := m.store.CreateInfractionsBulk(ctx, database.NewBulkInfraction{
		GuildID:  ev.GuildID,
		UserIDs:  userIDs,
		ModID:    userID(ev.Moderator),
		Type:     spec.typ,
		Reason:   ev.Reason,
		Note:     ev.Note,
		Duration: ev.Duration,
		Active:   true,
	})
	if err != nil {
		return nil, err
	}
	bulk := infs[0].BulkRange

	var durText string
	if ev.Duration != nil && *ev.Duration > 0 {
		durText = ExactDuration(*ev.Duration)
	}
	content := FormatMass(spec.emoji, spec.title, bulk.Start, bulk.End, durText, len(ev.Users), ev.Moderator, ev.Reason, ev.Note)

	msgID, err := m.messages.SendMessage(ctx, channelID, content)
	if err != nil {
		return infs, fmt.Errorf("send modlog message for #%d-%d: %w", bulk.Start, bulk.End, err)
	}

	ids := make([]int64, len(infs))
	for i, inf := range infs {
		ids[i] = inf.InfractionID
		inf.MessageID = msgID
	}
	if err := m.store.SetMessageID(ctx, ev.GuildID, msgID, ids...); err != nil {
		return infs, err
	}

	m.publish(ctx, Record{
		Category:      CategoryMass,
		Kind:          string(ev.Kind),
		GuildID:       ev.GuildID,
		UserIDs:       userIDs,
		ModeratorID:   userID(ev.Moderator),
		InfractionIDs: ids,
		MessageID:     msgID,
		Content:       content,
	})
	return infs, nil
}

func userID(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
