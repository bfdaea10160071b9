package moderation

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/audit"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

// attribution is what the audit log says about an external action
type attribution struct {
	entry     *audit.Entry
	moderator *modlog.User
	reason    string
	note      string
	duration  *time.Duration
}

// watching reports whether the guild has a modlog to keep in step
func (s *Service) watching(ctx context.Context, guildID string) (*models.GuildConfig, bool) {
	cfg, err := s.config(ctx, guildID)
	if err != nil {
		s.log.WithField("guild", guildID).Error(err.Error())
		return nil, false
	}
	return cfg, cfg.HasModlog()
}

// attribute waits for the audit log to catch up and resolves the entry for
// action. Only kick lookups may come back without an entry; any other action
// that times out returns the CorrelationTimeoutError and nothing is recorded.
func (s *Service) attribute(ctx context.Context, action audit.Action, guildID, userID string, predicate audit.Predicate, withDuration bool) (*attribution, error) {
	if err := s.sleep(ctx, s.eventDelay); err != nil {
		return nil, err
	}
	entry, err := s.entries.FetchEntry(ctx, action, guildID, userID, predicate)
	if err != nil {
		return nil, err
	}

	a := &attribution{entry: entry}
	if entry == nil {
		return a, nil
	}
	if entry.UserID != "" {
		mod := s.resolveUser(ctx, entry.UserID)
		a.moderator = &mod
	}
	a.reason, a.note, a.duration = modlog.ParseAuditReason(entry.Reason, withDuration)
	return a, nil
}

func (a *attribution) bySelf(s *Service) bool {
	return a.moderator != nil && s.isSelf(a.moderator.ID)
}

func (a *attribution) event(kind modlog.LogKind, guildID string, user modlog.User) modlog.LogEvent {
	return modlog.LogEvent{
		Kind:      kind,
		GuildID:   guildID,
		User:      user,
		Moderator: a.moderator,
		Reason:    a.reason,
		Note:      a.note,
		Duration:  a.duration,
	}
}

// OnMemberBan records a ban made outside the bot
func (s *Service) OnMemberBan(ctx context.Context, guildID string, user modlog.User) error {
	if _, ok := s.watching(ctx, guildID); !ok {
		return nil
	}
	a, err := s.attribute(ctx, audit.ActionBan, guildID, user.ID, audit.Any, true)
	if err != nil {
		return err
	}
	if a.bySelf(s) {
		return nil
	}
	if a.moderator != nil && s.exempt[a.moderator.ID] {
		return s.modlog.SmallLog(ctx, modlog.SmallLogEvent{
			Kind: modlog.SmallExternalBan, GuildID: guildID, User: user, Moderator: a.moderator,
		})
	}

	s.deactivate(ctx, guildID, user.ID, models.TypeBan)
	_, err = s.modlog.Log(ctx, a.event(modlog.LogBan, guildID, user))
	return err
}

// OnMemberUnban records an unban made outside the bot
func (s *Service) OnMemberUnban(ctx context.Context, guildID string, user modlog.User) error {
	if _, ok := s.watching(ctx, guildID); !ok {
		return nil
	}
	a, err := s.attribute(ctx, audit.ActionUnban, guildID, user.ID, audit.Any, false)
	if err != nil {
		return err
	}
	if a.bySelf(s) {
		return nil
	}

	s.deactivate(ctx, guildID, user.ID, models.TypeBan)
	_, err = s.modlog.Log(ctx, a.event(modlog.LogUnban, guildID, user))
	return err
}

// OnMemberRemove records kicks made outside the bot. A member who simply left
// leaves no kick entry and is ignored, as is a departure caused by a ban.
func (s *Service) OnMemberRemove(ctx context.Context, guildID string, member *Member) error {
	if member == nil {
		return nil
	}
	if err := s.recordLeftWhileMuted(ctx, guildID, member); err != nil {
		s.log.WithField("guild", guildID).WithField("user", member.User.ID).
			Error("No se pudo registrar el silencio del miembro que salió: " + err.Error())
	}

	if _, ok := s.watching(ctx, guildID); !ok {
		return nil
	}
	a, err := s.attribute(ctx, audit.ActionKick, guildID, member.User.ID, audit.Any, false)
	if err != nil {
		return err
	}
	if a.entry == nil {
		s.log.WithField("user", member.User.ID).Debug("Sin entrada de expulsión, el miembro salió por su cuenta")
		return nil
	}
	if a.entry.Action == audit.ActionBan {
		return nil
	}
	if a.bySelf(s) {
		return nil
	}

	a.duration = nil
	_, err = s.modlog.Log(ctx, a.event(modlog.LogKick, guildID, member.User))
	return err
}

// OnMemberUpdate records the mute role being added or removed outside the bot
func (s *Service) OnMemberUpdate(ctx context.Context, guildID string, user modlog.User, before, after []string) error {
	cfg, ok := s.watching(ctx, guildID)
	if !ok || cfg.MuteRoleID == "" {
		return nil
	}
	role := cfg.MuteRoleID
	had := (&Member{Roles: before}).HasRole(role)
	has := (&Member{Roles: after}).HasRole(role)

	var (
		kind      modlog.LogKind
		predicate audit.Predicate
	)
	switch {
	case had && !has:
		kind, predicate = modlog.LogUnmute, audit.RoleRemoved(role)
	case has && !had:
		kind, predicate = modlog.LogMute, audit.RoleAdded(role)
	default:
		return nil
	}

	a, err := s.attribute(ctx, audit.ActionRoleUpdate, guildID, user.ID, predicate, kind == modlog.LogMute)
	if err != nil {
		return err
	}
	if a.entry != nil && !s.entries.Claim(guildID, a.entry.ID) {
		return nil
	}
	if a.bySelf(s) {
		return nil
	}

	s.deactivate(ctx, guildID, user.ID, models.TypeMute)
	_, err = s.modlog.Log(ctx, a.event(kind, guildID, user))
	return err
}
