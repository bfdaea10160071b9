package moderation

import (
	"context"
	"fmt"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

func (s *Service) record(ctx context.Context, kind modlog.LogKind, act Action) (*models.Infraction, error) {
	mod := act.Moderator
	return s.modlog.Log(ctx, modlog.LogEvent{
		Kind:      kind,
		GuildID:   act.GuildID,
		User:      act.Target,
		Moderator: &mod,
		Reason:    act.Reason,
		Note:      act.Note,
		Duration:  act.Duration,
	})
}

// Note records a note. The user does not need to be in the guild.
func (s *Service) Note(ctx context.Context, act Action) (*Result, error) {
	if _, err := s.enforcing(ctx, act.GuildID); err != nil {
		return nil, err
	}
	if _, err := s.member(ctx, act.GuildID, act.Target, false); err != nil {
		return nil, err
	}
	inf, err := s.record(ctx, modlog.LogNote, Action{GuildID: act.GuildID, Target: act.Target, Moderator: act.Moderator, Reason: act.Reason})
	if err != nil {
		return nil, err
	}
	return &Result{Infraction: inf}, nil
}

// Warn warns a member, notifying them when a reason is given
func (s *Service) Warn(ctx context.Context, act Action) (*Result, error) {
	cfg, err := s.enforcing(ctx, act.GuildID)
	if err != nil {
		return nil, err
	}
	if _, err := s.member(ctx, act.GuildID, act.Target, true); err != nil {
		return nil, err
	}

	res := &Result{}
	if act.Reason != "" {
		res.Notified = s.notify(ctx, cfg, act, modlog.LogWarn)
	}
	if res.Infraction, err = s.record(ctx, modlog.LogWarn, act); err != nil {
		return nil, err
	}
	return res, nil
}

// Mute adds the mute role. A user with an active mute gets a ConflictError
// unless act.EditDuration is set, in which case that mute's duration changes.
func (s *Service) Mute(ctx context.Context, act Action) (*Result, error) {
	cfg, err := s.enforcing(ctx, act.GuildID)
	if err != nil {
		return nil, err
	}
	member, err := s.member(ctx, act.GuildID, act.Target, true)
	if err != nil {
		return nil, err
	}
	role, err := s.muteRole(cfg)
	if err != nil {
		return nil, err
	}

	active, err := s.store.HasActiveInfraction(ctx, act.GuildID, act.Target.ID, models.TypeMute)
	if err != nil {
		return nil, err
	}
	if active {
		if !act.EditDuration {
			return nil, &moderrors.ConflictError{UserID: act.Target.ID, Type: string(models.TypeMute)}
		}
		return s.editActive(ctx, act, models.TypeMute)
	}
	if member.HasRole(role) {
		return nil, moderrors.NewModerationError("User is already muted.")
	}

	if err := s.platform.AddRole(ctx, act.GuildID, act.Target.ID, role, AuditReason(act.Moderator, act.Reason, act.Note)); err != nil {
		return nil, fmt.Errorf("add mute role: %w", err)
	}

	res := &Result{Notified: s.notify(ctx, cfg, act, modlog.LogMute)}
	if res.Infraction, err = s.record(ctx, modlog.LogMute, act); err != nil {
		return nil, err
	}
	return res, nil
}

// Unmute removes the mute role and ends any active mutes
func (s *Service) Unmute(ctx context.Context, act Action) (*Result, error) {
	cfg, err := s.enforcing(ctx, act.GuildID)
	if err != nil {
		return nil, err
	}
	member, err := s.member(ctx, act.GuildID, act.Target, true)
	if err != nil {
		return nil, err
	}
	role, err := s.muteRole(cfg)
	if err != nil {
		return nil, err
	}
	if !member.HasRole(role) {
		return nil, moderrors.NewModerationError("User is not muted.")
	}

	if err := s.platform.RemoveRole(ctx, act.GuildID, act.Target.ID, role, AuditReason(act.Moderator, act.Reason, act.Note)); err != nil {
		return nil, fmt.Errorf("remove mute role: %w", err)
	}

	res := &Result{Notified: s.notify(ctx, cfg, act, modlog.LogUnmute)}
	s.deactivate(ctx, act.GuildID, act.Target.ID, models.TypeMute)
	act.Duration = nil
	if res.Infraction, err = s.record(ctx, modlog.LogUnmute, act); err != nil {
		return nil, err
	}
	return res, nil
}

// Kick notifies the member first, since a DM may be impossible afterwards
func (s *Service) Kick(ctx context.Context, act Action) (*Result, error) {
	cfg, err := s.enforcing(ctx, act.GuildID)
	if err != nil {
		return nil, err
	}
	if err := s.requirePermission(act.GuildID, PermKickMembers); err != nil {
		return nil, err
	}
	act.Duration = nil
	member, err := s.member(ctx, act.GuildID, act.Target, true)
	if err != nil {
		return nil, err
	}
	if err := s.outranks(act.GuildID, member); err != nil {
		return nil, err
	}

	res := &Result{Notified: s.notify(ctx, cfg, act, modlog.LogKick)}
	if err := s.platform.Kick(ctx, act.GuildID, act.Target.ID, AuditReason(act.Moderator, act.Reason, act.Note)); err != nil {
		return nil, fmt.Errorf("kick: %w", err)
	}
	if res.Infraction, err = s.record(ctx, modlog.LogKick, act); err != nil {
		return nil, err
	}
	return res, nil
}

// Ban bans a user. Users who are not in the guild are forcebanned and not notified.
func (s *Service) Ban(ctx context.Context, act Action) (*Result, error) {
	cfg, err := s.enforcing(ctx, act.GuildID)
	if err != nil {
		return nil, err
	}
	if err := s.requirePermission(act.GuildID, PermBanMembers); err != nil {
		return nil, err
	}
	member, err := s.member(ctx, act.GuildID, act.Target, false)
	if err != nil {
		return nil, err
	}
	if err := s.outranks(act.GuildID, member); err != nil {
		return nil, err
	}

	active, err := s.store.HasActiveInfraction(ctx, act.GuildID, act.Target.ID, models.TypeBan)
	if err != nil {
		return nil, err
	}
	if active {
		if !act.EditDuration {
			return nil, &moderrors.ConflictError{UserID: act.Target.ID, Type: string(models.TypeBan)}
		}
		return s.editActive(ctx, act, models.TypeBan)
	}

	res := &Result{Forced: member == nil}
	kind := modlog.LogBan
	if member != nil {
		res.Notified = s.notify(ctx, cfg, act, modlog.LogBan)
	} else {
		kind = modlog.LogForceban
		if act.Target.Name == "" {
			if u, err := s.platform.User(ctx, act.Target.ID); err == nil {
				act.Target = u
			}
		}
	}

	if err := s.platform.Ban(ctx, act.GuildID, act.Target.ID, AuditReason(act.Moderator, act.Reason, act.Note), 0); err != nil {
		return nil, fmt.Errorf("ban: %w", err)
	}
	if res.Infraction, err = s.record(ctx, kind, act); err != nil {
		return nil, err
	}
	return res, nil
}

// Unban lifts a ban and ends any active bans
func (s *Service) Unban(ctx context.Context, act Action) (*Result, error) {
	if _, err := s.enforcing(ctx, act.GuildID); err != nil {
		return nil, err
	}
	if err := s.requirePermission(act.GuildID, PermBanMembers); err != nil {
		return nil, err
	}
	banned, err := s.platform.IsBanned(ctx, act.GuildID, act.Target.ID)
	if err != nil {
		return nil, err
	}
	if !banned {
		return nil, moderrors.NewModerationError("User **%s** is not banned.", act.Target)
	}

	if err := s.platform.Unban(ctx, act.GuildID, act.Target.ID, AuditReason(act.Moderator, act.Reason, act.Note)); err != nil {
		return nil, fmt.Errorf("unban: %w", err)
	}
	s.deactivate(ctx, act.GuildID, act.Target.ID, models.TypeBan)

	act.Duration = nil
	inf, err := s.record(ctx, modlog.LogUnban, act)
	if err != nil {
		return nil, err
	}
	return &Result{Infraction: inf}, nil
}
