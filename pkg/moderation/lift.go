package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

// resolveUser returns the user's display data, falling back to the bare id
func (s *Service) resolveUser(ctx context.Context, userID string) modlog.User {
	u, err := s.platform.User(ctx, userID)
	if err != nil || u.ID == "" {
		return modlog.User{ID: userID}
	}
	return u
}

// AutoUnmute lifts an expired mute. The mute is deactivated even when the
// role could not be removed, so it is never retried.
func (s *Service) AutoUnmute(ctx context.Context, inf *models.Infraction) error {
	var liftErr error
	user := modlog.User{ID: inf.UserID}

	cfg, err := s.config(ctx, inf.GuildID)
	if err != nil {
		liftErr = err
	} else if role, ok := s.canMute(cfg); ok {
		member, err := s.platform.Member(ctx, inf.GuildID, inf.UserID)
		switch {
		case err != nil:
			liftErr = err
		case member != nil:
			user = member.User
			if member.HasRole(role) {
				reason := fmt.Sprintf("Mute expired (#%d)", inf.InfractionID)
				if err := s.platform.RemoveRole(ctx, inf.GuildID, inf.UserID, role, reason); err != nil {
					liftErr = fmt.Errorf("remove mute role: %w", err)
				}
			}
		}
	}
	if user.Name == "" {
		user = s.resolveUser(ctx, inf.UserID)
	}

	_, deactivateErr := s.store.DeactivateInfractions(ctx, inf.GuildID, inf.UserID, models.TypeMute)
	logErr := s.modlog.SmallLog(ctx, modlog.SmallLogEvent{
		Kind: modlog.SmallMuteExpire, GuildID: inf.GuildID, User: user, InfractionID: inf.InfractionID,
	})
	return errors.Join(liftErr, deactivateErr, logErr)
}

// AutoUnban lifts an expired ban. The ban is deactivated even when the
// platform unban failed.
func (s *Service) AutoUnban(ctx context.Context, inf *models.Infraction) error {
	var liftErr error
	if s.platform.BotHasPermission(inf.GuildID, PermBanMembers) {
		banned, err := s.platform.IsBanned(ctx, inf.GuildID, inf.UserID)
		switch {
		case err != nil:
			liftErr = err
		case banned:
			reason := fmt.Sprintf("Ban expired (#%d)", inf.InfractionID)
			if err := s.platform.Unban(ctx, inf.GuildID, inf.UserID, reason); err != nil {
				liftErr = fmt.Errorf("unban: %w", err)
			}
		}
	} else {
		s.log.WithField("guild", inf.GuildID).Warn(fmt.Sprintf("Sin permiso para levantar el baneo #%d", inf.InfractionID))
	}

	_, deactivateErr := s.store.DeactivateInfractions(ctx, inf.GuildID, inf.UserID, models.TypeBan)
	logErr := s.modlog.SmallLog(ctx, modlog.SmallLogEvent{
		Kind: modlog.SmallBanExpire, GuildID: inf.GuildID, User: s.resolveUser(ctx, inf.UserID), InfractionID: inf.InfractionID,
	})
	return errors.Join(liftErr, deactivateErr, logErr)
}

// AutoMute re-applies an active mute to a member who rejoined. It reports
// whether the role was added.
func (s *Service) AutoMute(ctx context.Context, guildID string, user modlog.User) (bool, error) {
	cfg, err := s.config(ctx, guildID)
	if err != nil || cfg.MuteRoleID == "" {
		return false, err
	}
	inf, err := s.store.LatestActive(ctx, guildID, user.ID, models.TypeMute)
	if err != nil || inf == nil {
		return false, err
	}
	role, ok := s.canMute(cfg)
	if !ok {
		return false, nil
	}

	reason := fmt.Sprintf("Active mute (#%d)", inf.InfractionID)
	if err := s.platform.AddRole(ctx, guildID, user.ID, role, reason); err != nil {
		return false, fmt.Errorf("add mute role: %w", err)
	}
	return true, s.modlog.SmallLog(ctx, modlog.SmallLogEvent{
		Kind: modlog.SmallMutePersist, GuildID: guildID, User: user, InfractionID: inf.InfractionID,
	})
}

// OnMemberJoin keeps active mutes in force across a leave and rejoin
func (s *Service) OnMemberJoin(ctx context.Context, guildID string, user modlog.User) {
	muted, err := s.AutoMute(ctx, guildID, user)
	if err != nil {
		s.log.WithField("guild", guildID).WithField("user", user.ID).
			Error("No se pudo mantener el silencio activo: " + err.Error())
		return
	}
	if muted {
		s.log.WithField("guild", guildID).WithField("user", user.ID).Debug("Silencio activo restaurado")
	}
}

// recordLeftWhileMuted creates a mute for a member who left holding the mute
// role without an active mute, so the role is restored if they return
func (s *Service) recordLeftWhileMuted(ctx context.Context, guildID string, member *Member) error {
	cfg, err := s.config(ctx, guildID)
	if err != nil {
		return err
	}
	if cfg.MuteRoleID == "" || !member.HasRole(cfg.MuteRoleID) {
		return nil
	}
	active, err := s.store.HasActiveInfraction(ctx, guildID, member.User.ID, models.TypeMute)
	if err != nil || active {
		return err
	}

	bot := s.modlog.Bot()
	_, err = s.modlog.Log(ctx, modlog.LogEvent{
		Kind:      modlog.LogMute,
		GuildID:   guildID,
		User:      member.User,
		Moderator: &bot,
		Reason:    "Infraction created automatically.",
		Note:      "Muted user left guild but did not have any active mute infractions.",
	})
	return err
}
