package models

import "slices"

// History indexes a user's infractions in a guild by type, plus the ones still in force
type History struct {
	GuildID string  `bson:"guild_id" json:"guildId"`
	UserID  string  `bson:"user_id" json:"userId"`
	Note    []int64 `bson:"note" json:"note"`
	Warn    []int64 `bson:"warn" json:"warn"`
	Mute    []int64 `bson:"mute" json:"mute"`
	Unmute  []int64 `bson:"unmute" json:"unmute"`
	Kick    []int64 `bson:"kick" json:"kick"`
	Ban     []int64 `bson:"ban" json:"ban"`
	Unban   []int64 `bson:"unban" json:"unban"`
	Active  []int64 `bson:"active" json:"active"`
}

// NewHistory returns an empty history with every list initialised
func NewHistory(guildID, userID string) *History {
	return &History{
		GuildID: guildID,
		UserID:  userID,
		Note:    []int64{},
		Warn:    []int64{},
		Mute:    []int64{},
		Unmute:  []int64{},
		Kick:    []int64{},
		Ban:     []int64{},
		Unban:   []int64{},
		Active:  []int64{},
	}
}

// list returns a pointer to the slice holding ids of type t
func (h *History) list(t InfractionType) *[]int64 {
	switch t.Stored() {
	case TypeNote:
		return &h.Note
	case TypeWarn:
		return &h.Warn
	case TypeMute:
		return &h.Mute
	case TypeUnmute:
		return &h.Unmute
	case TypeKick:
		return &h.Kick
	case TypeBan:
		return &h.Ban
	case TypeUnban:
		return &h.Unban
	}
	return nil
}

// IDs returns the ids recorded under type t
func (h *History) IDs(t InfractionType) []int64 {
	if l := h.list(t); l != nil {
		return *l
	}
	return nil
}

// Add appends id to the list for t, and to Active when active is set
func (h *History) Add(t InfractionType, id int64, active bool) {
	if l := h.list(t); l != nil {
		*l = append(*l, id)
	}
	if active {
		h.Active = append(h.Active, id)
	}
}

// Remove strips id from the list for t and from Active
func (h *History) Remove(t InfractionType, id int64) bool {
	removed := false
	if l := h.list(t); l != nil {
		if i := slices.Index(*l, id); i >= 0 {
			*l = slices.Delete(*l, i, i+1)
			removed = true
		}
	}
	if h.Deactivate(id) {
		removed = true
	}
	return removed
}

// Deactivate strips id from Active only
func (h *History) Deactivate(id int64) bool {
	if i := slices.Index(h.Active, id); i >= 0 {
		h.Active = slices.Delete(h.Active, i, i+1)
		return true
	}
	return false
}

// IsActive reports whether id is currently in force
func (h *History) IsActive(id int64) bool {
	return slices.Contains(h.Active, id)
}

// HasActive reports whether any id of type t is in force
func (h *History) HasActive(t InfractionType) bool {
	for _, id := range h.IDs(t) {
		if h.IsActive(id) {
			return true
		}
	}
	return false
}

// All returns every id across the type lists mapped to its type
func (h *History) All() map[int64]InfractionType {
	all := make(map[int64]InfractionType)
	for _, t := range HistoryTypes {
		for _, id := range h.IDs(t) {
			all[id] = t
		}
	}
	return all
}

// Clone returns a deep copy of the history
func (h *History) Clone() *History {
	return &History{
		GuildID: h.GuildID,
		UserID:  h.UserID,
		Note:    slices.Clone(h.Note),
		Warn:    slices.Clone(h.Warn),
		Mute:    slices.Clone(h.Mute),
		Unmute:  slices.Clone(h.Unmute),
		Kick:    slices.Clone(h.Kick),
		Ban:     slices.Clone(h.Ban),
		Unban:   slices.Clone(h.Unban),
		Active:  slices.Clone(h.Active),
	}
}
