// Package models defines the documents persisted by the modlog engine.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InfractionType is the kind of moderation action an infraction records
type InfractionType string

const (
	TypeNote     InfractionType = "note"
	TypeWarn     InfractionType = "warn"
	TypeMute     InfractionType = "mute"
	TypeUnmute   InfractionType = "unmute"
	TypeKick     InfractionType = "kick"
	TypeBan      InfractionType = "ban"
	TypeForceban InfractionType = "forceban"
	TypeUnban    InfractionType = "unban"
)

// HistoryTypes lists the types tracked in a user's History, in display order
var HistoryTypes = []InfractionType{TypeNote, TypeWarn, TypeMute, TypeUnmute, TypeKick, TypeBan, TypeUnban}

// ParseInfractionType validates a user supplied type name
func ParseInfractionType(s string) (InfractionType, bool) {
	t := InfractionType(s)
	switch t {
	case TypeNote, TypeWarn, TypeMute, TypeUnmute, TypeKick, TypeBan, TypeForceban, TypeUnban:
		return t, true
	}
	return "", false
}

// Stored returns the type under which the infraction is persisted and indexed.
// Forcebans are bans of users who are not members and share the ban history list.
func (t InfractionType) Stored() InfractionType {
	if t == TypeForceban {
		return TypeBan
	}
	return t
}

// Ongoing reports whether the type represents a state that stays in force
func (t InfractionType) Ongoing() bool {
	switch t.Stored() {
	case TypeMute, TypeBan:
		return true
	}
	return false
}

// BulkRange is the inclusive case-id range shared by infractions of one mass action
type BulkRange struct {
	Start int64 `bson:"start" json:"start"`
	End   int64 `bson:"end" json:"end"`
}

// Contains reports whether id falls within the range
func (r BulkRange) Contains(id int64) bool {
	return id >= r.Start && id <= r.End
}

// IDs expands the range into its case ids
func (r BulkRange) IDs() []int64 {
	ids := make([]int64, 0, r.End-r.Start+1)
	for id := r.Start; id <= r.End; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Infraction is one recorded moderation action against a user in a guild
type Infraction struct {
	GlobalID     primitive.ObjectID `bson:"_id,omitempty" json:"globalId"`
	GuildID      string             `bson:"guild_id" json:"guildId"`
	InfractionID int64              `bson:"infraction_id" json:"infractionId"`
	UserID       string             `bson:"user_id" json:"userId"`
	ModID        string             `bson:"mod_id" json:"modId"`
	MessageID    string             `bson:"message_id,omitempty" json:"messageId,omitempty"`
	Type         InfractionType     `bson:"type" json:"type"`
	Reason       string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Note         string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	EndsAt       *time.Time         `bson:"ends_at,omitempty" json:"endsAt,omitempty"`
	Active       bool               `bson:"active" json:"active"`
	BulkRange    *BulkRange         `bson:"bulk_range,omitempty" json:"bulkRange,omitempty"`
}

// Duration returns the total duration of the infraction, nil when permanent
func (i *Infraction) Duration() *time.Duration {
	if i.EndsAt == nil {
		return nil
	}
	d := i.EndsAt.Sub(i.CreatedAt)
	return &d
}

// Remaining returns the time left before expiry at now, zero once elapsed
func (i *Infraction) Remaining(now time.Time) time.Duration {
	if i.EndsAt == nil || !i.EndsAt.After(now) {
		return 0
	}
	return i.EndsAt.Sub(now)
}

// Clone returns a deep copy so cached values are never mutated in place
func (i *Infraction) Clone() *Infraction {
	c := *i
	if i.EndsAt != nil {
		t := *i.EndsAt
		c.EndsAt = &t
	}
	if i.BulkRange != nil {
		r := *i.BulkRange
		c.BulkRange = &r
	}
	return &c
}
