// Package audit attributes moderation actions seen on the gateway to the
// moderator and reason recorded in the guild's audit log.
package audit

import (
	"context"
	"slices"
)

// Action is the audit log action type an entry records
type Action int

const (
	ActionKick Action = iota + 1
	ActionBan
	ActionUnban
	ActionRoleUpdate
)

// Mutes and unmutes are role updates on the member
const (
	ActionMute   = ActionRoleUpdate
	ActionUnmute = ActionRoleUpdate
)

func (a Action) String() string {
	switch a {
	case ActionKick:
		return "kick"
	case ActionBan:
		return "ban"
	case ActionUnban:
		return "unban"
	case ActionRoleUpdate:
		return "member_role_update"
	}
	return "unknown"
}

// Entry is one audit log record, reduced to the fields correlation needs
type Entry struct {
	ID       string
	Action   Action
	TargetID string
	// UserID is the moderator who performed the action
	UserID       string
	Reason       string
	RolesAdded   []string
	RolesRemoved []string
}

// AuditFetcher reads the newest page of a guild's audit log, newest entry first
type AuditFetcher interface {
	FetchAuditLog(ctx context.Context, guildID string, limit int) ([]Entry, error)
}

// Predicate decides whether an entry with the right action and target is the one a request waits for
type Predicate func(Entry) bool

// Any accepts every entry
func Any(Entry) bool { return true }

// RoleAdded matches role updates that gave the member roleID
func RoleAdded(roleID string) Predicate {
	return func(e Entry) bool {
		return slices.Contains(e.RolesAdded, roleID) && !slices.Contains(e.RolesRemoved, roleID)
	}
}

// RoleRemoved matches role updates that took roleID from the member
func RoleRemoved(roleID string) Predicate {
	return func(e Entry) bool {
		return slices.Contains(e.RolesRemoved, roleID) && !slices.Contains(e.RolesAdded, roleID)
	}
}
