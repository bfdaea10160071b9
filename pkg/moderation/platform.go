package moderation

import (
	"context"
	"slices"

	"github.com/PancyStudios/PancyModlog/pkg/audit"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

// Permission is a guild-wide permission the bot may need
type Permission int

const (
	PermManageRoles Permission = iota
	PermKickMembers
	PermBanMembers
)

func (p Permission) String() string {
	switch p {
	case PermManageRoles:
		return "Manage Roles"
	case PermKickMembers:
		return "Kick Members"
	case PermBanMembers:
		return "Ban Members"
	}
	return "Unknown"
}

// Member is a guild member as seen by moderation checks
type Member struct {
	User  modlog.User
	Roles []string
	// TopRole is the position of the member's highest role
	TopRole int
	// Moderator is set for members holding moderation permissions
	Moderator bool
}

// HasRole reports whether the member holds roleID
func (m *Member) HasRole(roleID string) bool {
	return m != nil && slices.Contains(m.Roles, roleID)
}

// Platform is the chat platform surface moderation acts through
type Platform interface {
	// GuildName returns the guild's display name, or its id when unknown
	GuildName(guildID string) string
	// Member returns nil without error when the user is not in the guild
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	User(ctx context.Context, userID string) (modlog.User, error)
	RolePosition(guildID, roleID string) (int, bool)
	BotHasPermission(guildID string, p Permission) bool
	BotTopRole(guildID string) int

	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Unban(ctx context.Context, guildID, userID, reason string) error
	IsBanned(ctx context.Context, guildID, userID string) (bool, error)
	SendDM(ctx context.Context, userID, content string) error
}

// EntrySource resolves who performed an action seen through a gateway event
type EntrySource interface {
	FetchEntry(ctx context.Context, action audit.Action, guildID, userID string, predicate audit.Predicate) (*audit.Entry, error)
	Claim(guildID, entryID string) bool
}
