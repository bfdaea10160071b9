package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/PancyStudios/PancyModlog/pkg/audit"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/bwmarrin/discordgo"
)

// Platform adapts a discordgo session to the audit, modlog and moderation
// collaborator interfaces
type Platform struct {
	session *discordgo.Session
}

// NewPlatform wraps session
func NewPlatform(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

var auditActions = map[audit.Action]discordgo.AuditLogAction{
	audit.ActionKick:       discordgo.AuditLogActionMemberKick,
	audit.ActionBan:        discordgo.AuditLogActionMemberBanAdd,
	audit.ActionUnban:      discordgo.AuditLogActionMemberBanRemove,
	audit.ActionRoleUpdate: discordgo.AuditLogActionMemberRoleUpdate,
}

func actionFromDiscord(a discordgo.AuditLogAction) (audit.Action, bool) {
	for action, d := range auditActions {
		if d == a {
			return action, true
		}
	}
	return 0, false
}

// roleIDs reads the role list of a "$add"/"$remove" change
func roleIDs(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if role, ok := item.(map[string]interface{}); ok {
			if id, ok := role["id"].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// convertAuditEntries keeps the entries the correlator understands, in page order
func convertAuditEntries(entries []*discordgo.AuditLogEntry) []audit.Entry {
	out := make([]audit.Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.ActionType == nil {
			continue
		}
		action, ok := actionFromDiscord(*e.ActionType)
		if !ok {
			continue
		}
		entry := audit.Entry{
			ID:       e.ID,
			Action:   action,
			TargetID: e.TargetID,
			UserID:   e.UserID,
			Reason:   e.Reason,
		}
		for _, change := range e.Changes {
			if change == nil || change.Key == nil {
				continue
			}
			switch *change.Key {
			case discordgo.AuditLogChangeKeyRoleAdd:
				entry.RolesAdded = append(entry.RolesAdded, roleIDs(change.NewValue)...)
			case discordgo.AuditLogChangeKeyRoleRemove:
				entry.RolesRemoved = append(entry.RolesRemoved, roleIDs(change.NewValue)...)
			}
		}
		out = append(out, entry)
	}
	return out
}

// FetchAuditLog reads the newest entries of the guild's audit log
func (p *Platform) FetchAuditLog(ctx context.Context, guildID string, limit int) ([]audit.Entry, error) {
	log, err := p.session.GuildAuditLog(guildID, "", "", 0, limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return convertAuditEntries(log.AuditLogEntries), nil
}

// GuildAvailable reports whether the guild is cached and not in an outage
func (p *Platform) GuildAvailable(guildID string) bool {
	g, err := p.session.State.Guild(guildID)
	return err == nil && !g.Unavailable
}

// GuildName returns the cached guild name, or the id
func (p *Platform) GuildName(guildID string) string {
	if g, err := p.session.State.Guild(guildID); err == nil && g.Name != "" {
		return g.Name
	}
	return guildID
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

// ToUser converts a discordgo user for the modlog
func ToUser(u *discordgo.User) modlog.User {
	if u == nil {
		return modlog.User{}
	}
	return modlog.User{ID: u.ID, Name: u.String()}
}

// roleSet resolves the roles a member holds, with @everyone included
func roleSet(g *discordgo.Guild, roles []string) []*discordgo.Role {
	held := make(map[string]bool, len(roles)+1)
	held[g.ID] = true
	for _, r := range roles {
		held[r] = true
	}
	out := make([]*discordgo.Role, 0, len(held))
	for _, r := range g.Roles {
		if held[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// guildPermissions computes a member's guild-wide permission bits
func guildPermissions(g *discordgo.Guild, userID string, roles []string) int64 {
	if g.OwnerID == userID {
		return discordgo.PermissionAll
	}
	var perms int64
	for _, r := range roleSet(g, roles) {
		perms |= r.Permissions
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// topRole returns the highest role position the member holds
func topRole(g *discordgo.Guild, roles []string) int {
	top := 0
	for _, r := range roleSet(g, roles) {
		if r.Position > top {
			top = r.Position
		}
	}
	return top
}

const moderatorPermissions = discordgo.PermissionManageRoles | discordgo.PermissionKickMembers |
	discordgo.PermissionBanMembers | discordgo.PermissionManageMessages

func toMember(g *discordgo.Guild, m *discordgo.Member) *moderation.Member {
	member := &moderation.Member{User: ToUser(m.User), Roles: m.Roles}
	if g != nil {
		member.TopRole = topRole(g, m.Roles)
		member.Moderator = guildPermissions(g, m.User.ID, m.Roles)&moderatorPermissions != 0
	}
	return member
}

// Member fetches a guild member, nil when the user is not in the guild
func (p *Platform) Member(ctx context.Context, guildID, userID string) (*moderation.Member, error) {
	m, err := p.session.State.Member(guildID, userID)
	if err != nil {
		m, err = p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
	}
	g, _ := p.session.State.Guild(guildID)
	return toMember(g, m), nil
}

// User fetches any user by id
func (p *Platform) User(ctx context.Context, userID string) (modlog.User, error) {
	u, err := p.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return modlog.User{}, err
	}
	return ToUser(u), nil
}

// RolePosition returns the position of a cached role
func (p *Platform) RolePosition(guildID, roleID string) (int, bool) {
	r, err := p.session.State.Role(guildID, roleID)
	if err != nil {
		return 0, false
	}
	return r.Position, true
}

func (p *Platform) self(guildID string) (*discordgo.Guild, *discordgo.Member, bool) {
	g, err := p.session.State.Guild(guildID)
	if err != nil || p.session.State.User == nil {
		return nil, nil, false
	}
	m, err := p.session.State.Member(guildID, p.session.State.User.ID)
	if err != nil {
		return nil, nil, false
	}
	return g, m, true
}

var permissionBits = map[moderation.Permission]int64{
	moderation.PermManageRoles: discordgo.PermissionManageRoles,
	moderation.PermKickMembers: discordgo.PermissionKickMembers,
	moderation.PermBanMembers:  discordgo.PermissionBanMembers,
}

// BotHasPermission checks the bot's guild-wide permissions
func (p *Platform) BotHasPermission(guildID string, perm moderation.Permission) bool {
	g, m, ok := p.self(guildID)
	if !ok {
		return false
	}
	bit := permissionBits[perm]
	return guildPermissions(g, m.User.ID, m.Roles)&bit == bit
}

// BotTopRole returns the position of the bot's highest role
func (p *Platform) BotTopRole(guildID string) int {
	g, m, ok := p.self(guildID)
	if !ok {
		return 0
	}
	return topRole(g, m.Roles)
}

func (p *Platform) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *Platform) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return p.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *Platform) Kick(ctx context.Context, guildID, userID, reason string) error {
	return p.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (p *Platform) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return p.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx))
}

func (p *Platform) Unban(ctx context.Context, guildID, userID, reason string) error {
	return p.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

// IsBanned reports whether the user is on the guild's ban list
func (p *Platform) IsBanned(ctx context.Context, guildID, userID string) (bool, error) {
	_, err := p.session.GuildBan(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SendDM opens a DM channel and sends content
func (p *Platform) SendDM(ctx context.Context, userID, content string) error {
	ch, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	_, err = p.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := p.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (p *Platform) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := p.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) FetchMessage(ctx context.Context, channelID, messageID string) (string, error) {
	msg, err := p.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

var (
	_ audit.AuditFetcher    = (*Platform)(nil)
	_ modlog.MessageService = (*Platform)(nil)
	_ moderation.Platform   = (*Platform)(nil)
)
