package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

// MassAction applies one action to several users
type MassAction struct {
	GuildID   string
	Targets   []modlog.User
	Moderator modlog.User
	Reason    string
	Note      string
	Duration  *time.Duration
}

// MassResult reports how a mass action went
type MassResult struct {
	Total       int
	Succeeded   []modlog.User
	Infractions []*models.Infraction
	// Already counts users who were already banned or muted
	Already int
	// Missing counts users not found in the guild or on the platform
	Missing int
}

// Summary renders the outcome for the moderator, e.g. "Banned 3/4 users (1 day). *1 user already banned.*"
func (r *MassResult) Summary(verb, state string, duration *time.Duration) string {
	plural := func(n int) string {
		if n == 1 {
			return ""
		}
		return "s"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d/%d users", verb, len(r.Succeeded), r.Total)
	if len(r.Succeeded) > 0 {
		fmt.Fprintf(&b, " (%s).", modlog.DurationText(duration))
	} else {
		b.WriteString(".")
	}

	var extra []string
	if r.Already > 0 {
		extra = append(extra, fmt.Sprintf("%d user%s already %s", r.Already, plural(r.Already), state))
	}
	if r.Missing > 0 {
		extra = append(extra, fmt.Sprintf("%d user%s not found", r.Missing, plural(r.Missing)))
	}
	if len(extra) > 0 {
		fmt.Fprintf(&b, " *%s.*", strings.Join(extra, ", "))
	}
	return b.String()
}

func uniqueTargets(users []modlog.User) []modlog.User {
	seen := make(map[string]bool, len(users))
	out := make([]modlog.User, 0, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}

// logMass records the users that were actioned, as a single infraction when
// only one succeeded
func (s *Service) logMass(ctx context.Context, act MassAction, single modlog.LogKind, kind modlog.MassKind, res *MassResult) error {
	mod := act.Moderator
	switch len(res.Succeeded) {
	case 0:
		return nil
	case 1:
		inf, err := s.modlog.Log(ctx, modlog.LogEvent{
			Kind: single, GuildID: act.GuildID, User: res.Succeeded[0], Moderator: &mod,
			Reason: act.Reason, Note: act.Note, Duration: act.Duration,
		})
		if inf != nil {
			res.Infractions = []*models.Infraction{inf}
		}
		return err
	}
	infs, err := s.modlog.MassLog(ctx, modlog.MassActionLogEvent{
		Kind: kind, GuildID: act.GuildID, Users: res.Succeeded, Moderator: &mod,
		Reason: act.Reason, Note: act.Note, Duration: act.Duration,
	})
	res.Infractions = infs
	return err
}

// MassBan bans every target not already banned. Confirmation is the caller's job.
func (s *Service) MassBan(ctx context.Context, act MassAction) (*MassResult, error) {
	targets := uniqueTargets(act.Targets)
	if len(targets) <= 1 {
		return nil, moderrors.NewModerationError("Not enough users to ban.")
	}
	if _, err := s.enforcing(ctx, act.GuildID); err != nil {
		return nil, err
	}
	if err := s.requirePermission(act.GuildID, PermBanMembers); err != nil {
		return nil, err
	}

	res := &MassResult{Total: len(targets)}
	bannable := make([]modlog.User, 0, len(targets))
	for _, u := range targets {
		member, err := s.member(ctx, act.GuildID, u, false)
		if err != nil {
			return nil, err
		}
		if err := s.outranks(act.GuildID, member); err != nil {
			return nil, err
		}
		banned, err := s.platform.IsBanned(ctx, act.GuildID, u.ID)
		if err != nil {
			return nil, err
		}
		if banned {
			res.Already++
			continue
		}
		bannable = append(bannable, u)
	}

	reason := AuditReason(act.Moderator, act.Reason, act.Note)
	for _, u := range bannable {
		if err := s.platform.Ban(ctx, act.GuildID, u.ID, reason, 1); err != nil {
			s.log.WithField("user", u.ID).Warn("No se pudo banear en el baneo masivo: " + err.Error())
			res.Missing++
			continue
		}
		res.Succeeded = append(res.Succeeded, u)
	}

	return res, s.logMass(ctx, act, modlog.LogBan, modlog.MassBan, res)
}

// MassMute mutes every target in the guild not already muted
func (s *Service) MassMute(ctx context.Context, act MassAction) (*MassResult, error) {
	targets := uniqueTargets(act.Targets)
	if len(targets) <= 1 {
		return nil, moderrors.NewModerationError("Not enough users to mute.")
	}
	cfg, err := s.enforcing(ctx, act.GuildID)
	if err != nil {
		return nil, err
	}
	role, err := s.muteRole(cfg)
	if err != nil {
		return nil, err
	}

	res := &MassResult{Total: len(targets)}
	mutable := make([]modlog.User, 0, len(targets))
	for _, u := range targets {
		member, err := s.member(ctx, act.GuildID, u, false)
		if err != nil {
			return nil, err
		}
		switch {
		case member == nil:
			res.Missing++
		case member.HasRole(role):
			res.Already++
		default:
			mutable = append(mutable, member.User)
		}
	}

	reason := AuditReason(act.Moderator, act.Reason, act.Note)
	for _, u := range mutable {
		if err := s.platform.AddRole(ctx, act.GuildID, u.ID, role, reason); err != nil {
			s.log.WithField("user", u.ID).Warn("No se pudo silenciar en el silencio masivo: " + err.Error())
			res.Missing++
			continue
		}
		res.Succeeded = append(res.Succeeded, u)
	}

	return res, s.logMass(ctx, act, modlog.LogMute, modlog.MassMute, res)
}
