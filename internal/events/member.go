package events

import (
	"context"

	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// RegisterMemberEvents registers the member and ban handlers
func RegisterMemberEvents(client *discord.ExtendedClient, h *Handlers) {
	client.EventHandler.OnGuildMemberAdd(h.onGuildMemberAdd)
	client.EventHandler.OnGuildMemberRemove(h.onGuildMemberRemove)
	client.EventHandler.OnGuildMemberUpdate(h.onGuildMemberUpdate)
	client.EventHandler.OnGuildBanAdd(h.onGuildBanAdd)
	client.EventHandler.OnGuildBanRemove(h.onGuildBanRemove)
}

// onGuildMemberAdd restores an active mute on rejoin
func (h *Handlers) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}
	guildID, user := m.GuildID, discord.ToUser(m.User)
	h.spawn("member-add", guildID, func(ctx context.Context) error {
		h.watcher.OnMemberJoin(ctx, guildID, user)
		return nil
	})
}

// onGuildMemberRemove checks for a kick and for members leaving while muted
func (h *Handlers) onGuildMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil {
		return
	}
	roles := m.Roles
	if m.BeforeDelete != nil {
		roles = m.BeforeDelete.Roles
	}
	guildID := m.GuildID
	member := &moderation.Member{User: discord.ToUser(m.User), Roles: roles}
	h.spawn("member-remove", guildID, func(ctx context.Context) error {
		return h.watcher.OnMemberRemove(ctx, guildID, member)
	})
}

// onGuildMemberUpdate looks for the mute role being added or removed
func (h *Handlers) onGuildMemberUpdate(_ *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	// Without the cached member there is nothing to diff against
	if m.Member == nil || m.User == nil || m.BeforeUpdate == nil {
		return
	}
	before, after := m.BeforeUpdate.Roles, m.Roles
	if sameRoles(before, after) {
		return
	}
	guildID, user := m.GuildID, discord.ToUser(m.User)
	h.spawn("member-update", guildID, func(ctx context.Context) error {
		return h.watcher.OnMemberUpdate(ctx, guildID, user, before, after)
	})
}

func (h *Handlers) onGuildBanAdd(_ *discordgo.Session, b *discordgo.GuildBanAdd) {
	if b.User == nil {
		return
	}
	guildID, user := b.GuildID, discord.ToUser(b.User)
	h.spawn("ban-add", guildID, func(ctx context.Context) error {
		return h.watcher.OnMemberBan(ctx, guildID, user)
	})
}

func (h *Handlers) onGuildBanRemove(_ *discordgo.Session, b *discordgo.GuildBanRemove) {
	if b.User == nil {
		return
	}
	guildID, user := b.GuildID, discord.ToUser(b.User)
	h.spawn("ban-remove", guildID, func(ctx context.Context) error {
		return h.watcher.OnMemberUnban(ctx, guildID, user)
	})
}

func sameRoles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, r := range a {
		seen[r] = true
	}
	for _, r := range b {
		if !seen[r] {
			return false
		}
	}
	return true
}
