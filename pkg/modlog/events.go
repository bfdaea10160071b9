package modlog

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
)

// Event is one of LogEvent, SmallLogEvent or MassActionLogEvent
type Event interface {
	Guild() string
	event()
}

// LogKind names a single-user infraction event
type LogKind string

const (
	LogNote     LogKind = "note"
	LogWarn     LogKind = "warn"
	LogMute     LogKind = "mute"
	LogUnmute   LogKind = "unmute"
	LogKick     LogKind = "kick"
	LogBan      LogKind = "ban"
	LogForceban LogKind = "forceban"
	LogAutoban  LogKind = "autoban"
	LogUnban    LogKind = "unban"
)

// SmallLogKind names a one-line notice
type SmallLogKind string

const (
	SmallMuteExpire  SmallLogKind = "mute-expire"
	SmallBanExpire   SmallLogKind = "ban-expire"
	SmallMutePersist SmallLogKind = "mute-persist"
	SmallExternalBan SmallLogKind = "external-ban"
)

// MassKind names a mass action
type MassKind string

const (
	MassBan  MassKind = "mass-ban"
	MassMute MassKind = "mass-mute"
)

type logSpec struct {
	emoji  string
	title  string
	typ    models.InfractionType
	active bool
	// timed kinds render and store a duration
	timed bool
	// bot kinds are always attributed to the bot itself
	bot bool
}

var logSpecs = map[LogKind]logSpec{
	LogNote:     {emoji: EmojiNote, title: "NOTE CREATED", typ: models.TypeNote},
	LogWarn:     {emoji: EmojiWarn, title: "MEMBER WARNED", typ: models.TypeWarn},
	LogMute:     {emoji: EmojiMute, title: "MEMBER MUTED", typ: models.TypeMute, active: true, timed: true},
	LogUnmute:   {emoji: EmojiUnmute, title: "MEMBER UNMUTED", typ: models.TypeUnmute},
	LogKick:     {emoji: EmojiKick, title: "MEMBER KICKED", typ: models.TypeKick},
	LogBan:      {emoji: EmojiBan, title: "MEMBER BANNED", typ: models.TypeBan, active: true, timed: true},
	LogForceban: {emoji: EmojiBan, title: "USER FORCEBANNED", typ: models.TypeForceban, active: true, timed: true},
	LogAutoban:  {emoji: EmojiBan, title: "MEMBER AUTOMATICALLY BANNED", typ: models.TypeBan, active: true, bot: true},
	LogUnban:    {emoji: EmojiUnban, title: "USER UNBANNED", typ: models.TypeUnban},
}

type smallSpec struct {
	emoji string
	title string
}

var smallSpecs = map[SmallLogKind]smallSpec{
	SmallMuteExpire:  {EmojiUnmute, "Mute expired"},
	SmallBanExpire:   {EmojiUnban, "Ban expired"},
	SmallMutePersist: {EmojiMute, "Mute persisted"},
	SmallExternalBan: {EmojiBot, "External ban"},
}

type massSpec struct {
	emoji string
	title string
	typ   models.InfractionType
}

var massSpecs = map[MassKind]massSpec{
	MassBan:  {EmojiMassBan, "USERS MASS-BANNED", models.TypeBan},
	MassMute: {EmojiMute, "USERS MASS-MUTED", models.TypeMute},
}

// LogEvent records a new infraction against one user
type LogEvent struct {
	Kind      LogKind
	GuildID   string
	User      User
	Moderator *User
	Reason    string
	Note      string
	Duration  *time.Duration
}

func (e LogEvent) Guild() string { return e.GuildID }
func (LogEvent) event()          {}

// SmallLogEvent is a notice about an existing infraction
type SmallLogEvent struct {
	Kind         SmallLogKind
	GuildID      string
	User         User
	InfractionID int64
	// Moderator is only set for external bans
	Moderator *User
}

func (e SmallLogEvent) Guild() string { return e.GuildID }
func (SmallLogEvent) event()          {}

// MassActionLogEvent records one action applied to many users
type MassActionLogEvent struct {
	Kind      MassKind
	GuildID   string
	Users     []User
	Moderator *User
	Reason    string
	Note      string
	Duration  *time.Duration
}

func (e MassActionLogEvent) Guild() string { return e.GuildID }
func (MassActionLogEvent) event()          {}

// Category groups published records by the event that produced them
type Category string

const (
	CategoryLog   Category = "log"
	CategorySmall Category = "small"
	CategoryMass  Category = "mass"
	CategoryEdit  Category = "edit"
)

// Record is what sinks receive after a modlog message is rendered
type Record struct {
	Category      Category  `json:"category"`
	Kind          string    `json:"kind"`
	GuildID       string    `json:"guildId"`
	UserIDs       []string  `json:"userIds,omitempty"`
	ModeratorID   string    `json:"moderatorId,omitempty"`
	InfractionIDs []int64   `json:"infractionIds,omitempty"`
	MessageID     string    `json:"messageId,omitempty"`
	Content       string    `json:"content"`
	At            time.Time `json:"at"`
}

// EventSink receives every rendered modlog record
type EventSink interface {
	Publish(ctx context.Context, rec Record) error
}
