// Package moderation enforces infractions on the platform and keeps the
// modlog in step with actions taken outside the bot.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/PancyStudios/PancyModlog/pkg/database"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

const maxAuditReason = 512

// Options configures a Service
type Options struct {
	// BotID is the bot's own user id, used to ignore its own audit entries
	BotID string
	// ExemptBotIDs are bots whose bans are noted without creating an infraction
	ExemptBotIDs []string
	// EventDelay is how long watchers wait for the audit log to catch up
	EventDelay time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
}

// Service carries out moderation actions and records them in the modlog
type Service struct {
	platform Platform
	modlog   *modlog.Modlog
	store    *database.Store
	configs  modlog.ConfigSource
	entries  EntrySource

	botID      atomic.Value
	exempt     map[string]bool
	eventDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	log        *logger.Entry
}

// NewService creates a Service
func NewService(platform Platform, ml *modlog.Modlog, configs modlog.ConfigSource, entries EntrySource, opts Options) *Service {
	if opts.EventDelay <= 0 {
		opts.EventDelay = 2 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	exempt := make(map[string]bool, len(opts.ExemptBotIDs))
	for _, id := range opts.ExemptBotIDs {
		exempt[id] = true
	}
	svc := &Service{
		platform:   platform,
		modlog:     ml,
		store:      ml.Store(),
		configs:    configs,
		entries:    entries,
		exempt:     exempt,
		eventDelay: opts.EventDelay,
		sleep:      opts.Sleep,
		log:        logger.WithFields(nil, "Moderation"),
	}
	svc.botID.Store(opts.BotID)
	return svc
}

// SetBotID records the bot's user id once the gateway session is ready
func (s *Service) SetBotID(id string) {
	s.botID.Store(id)
}

func (s *Service) isSelf(userID string) bool {
	id, _ := s.botID.Load().(string)
	return id != "" && id == userID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Action describes one moderation action against one user
type Action struct {
	GuildID   string
	Target    modlog.User
	Moderator modlog.User
	Reason    string
	Note      string
	Duration  *time.Duration
	// EditDuration updates the active mute or ban instead of returning a ConflictError
	EditDuration bool
}

// Result reports what an action did
type Result struct {
	Infraction *models.Infraction
	// Existing is set when the user already had an active infraction of the
	// type, which Infraction then refers to
	Existing bool
	// Edited is set when that infraction's duration was changed
	Edited           bool
	PreviousDuration *time.Duration
	// Notified is nil when no DM was attempted
	Notified *bool
	// Forced is set for bans of users who were not in the guild
	Forced bool
}

// AuditReason formats the reason stored in the platform's audit log
func AuditReason(mod modlog.User, reason, note string) string {
	r := fmt.Sprintf("%s (%s): %s", mod, mod.ID, reason)
	if note != "" {
		r += fmt.Sprintf(" (note: %s)", note)
	}
	if utf8.RuneCountInString(r) > maxAuditReason {
		r = string([]rune(r)[:maxAuditReason])
	}
	return r
}

var alertVerbs = map[modlog.LogKind]string{
	modlog.LogWarn:   "warned in",
	modlog.LogMute:   "muted in",
	modlog.LogUnmute: "unmuted in",
	modlog.LogKick:   "kicked from",
	modlog.LogBan:    "banned from",
}

// FormatAlertDM renders the message sent to a user about an action against
// them. It returns "" for kinds that are never announced.
func FormatAlertDM(guildName, guildID, userName string, kind modlog.LogKind, duration *time.Duration, reason string, auto bool) string {
	verb, ok := alertVerbs[kind]
	if !ok {
		return ""
	}
	if auto {
		verb = "automatically " + verb
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s, you have been %s guild **%s** (%s).\n", userName, verb, guildName, guildID)
	if duration != nil && *duration > 0 {
		fmt.Fprintf(&b, "**Duration**: %s\n", modlog.ExactDuration(*duration))
	}
	fmt.Fprintf(&b, "**Reason**: %s", reason)
	return b.String()
}

func (s *Service) config(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	cfg, err := s.configs.GetConfig(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load config for guild %s: %w", guildID, err)
	}
	return cfg, nil
}

// enforcing loads the config for a command action. Without a modlog channel
// no infraction could be written, so the action is refused before any
// platform call.
func (s *Service) enforcing(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	cfg, err := s.config(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if !cfg.HasModlog() {
		return nil, &moderrors.NotConfiguredError{Option: "modlog_channel"}
	}
	return cfg, nil
}

// notify DMs the target when the guild has DMs enabled
func (s *Service) notify(ctx context.Context, cfg *models.GuildConfig, act Action, kind modlog.LogKind) *bool {
	if !cfg.DMOnInfraction {
		return nil
	}
	content := FormatAlertDM(s.platform.GuildName(act.GuildID), act.GuildID, act.Target.String(), kind, act.Duration, act.Reason, false)
	if content == "" {
		return nil
	}
	delivered := s.platform.SendDM(ctx, act.Target.ID, content) == nil
	if !delivered {
		s.log.WithField("user", act.Target.ID).Debug("No se pudo enviar el aviso por DM")
	}
	return &delivered
}

// member fetches the target and rejects actions against moderators
func (s *Service) member(ctx context.Context, guildID string, user modlog.User, required bool) (*Member, error) {
	m, err := s.platform.Member(ctx, guildID, user.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		if required {
			return nil, &moderrors.UserNotInGuildError{UserID: user.String()}
		}
		return nil, nil
	}
	if m.Moderator {
		return nil, &moderrors.ModActionOnModError{}
	}
	return m, nil
}

func (s *Service) requirePermission(guildID string, p Permission) error {
	if !s.platform.BotHasPermission(guildID, p) {
		return &moderrors.BotMissingPermissionError{Permission: p.String()}
	}
	return nil
}

// muteRole returns the configured mute role after checking the bot can manage it
func (s *Service) muteRole(cfg *models.GuildConfig) (string, error) {
	if cfg.MuteRoleID == "" {
		return "", &moderrors.NotConfiguredError{Option: "mute_role"}
	}
	pos, ok := s.platform.RolePosition(cfg.GuildID, cfg.MuteRoleID)
	if !ok {
		return "", &moderrors.NotConfiguredError{Option: "mute_role"}
	}
	if err := s.requirePermission(cfg.GuildID, PermManageRoles); err != nil {
		return "", err
	}
	if s.platform.BotTopRole(cfg.GuildID) <= pos {
		return "", &moderrors.RoleHierarchyError{}
	}
	return cfg.MuteRoleID, nil
}

// canMute reports whether the bot could add or remove the mute role right now
func (s *Service) canMute(cfg *models.GuildConfig) (string, bool) {
	role, err := s.muteRole(cfg)
	return role, err == nil
}

func (s *Service) outranks(guildID string, m *Member) error {
	if m != nil && s.platform.BotTopRole(guildID) <= m.TopRole {
		return &moderrors.RoleHierarchyError{}
	}
	return nil
}

func sameDuration(a, b *time.Duration) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// editActive changes the duration of the user's newest active infraction of type t
func (s *Service) editActive(ctx context.Context, act Action, t models.InfractionType) (*Result, error) {
	inf, err := s.store.LatestActive(ctx, act.GuildID, act.Target.ID, t)
	if err != nil {
		return nil, err
	}
	if inf == nil {
		return nil, moderrors.NewModerationError("User %s has no active %s to edit.", act.Target, t)
	}

	old := inf.Duration()
	if sameDuration(old, act.Duration) {
		return &Result{Infraction: inf, Existing: true, PreviousDuration: old}, nil
	}
	updated, err := s.modlog.EditDuration(ctx, inf, act.Duration, act.Moderator.String())
	res := &Result{Infraction: inf, Existing: true, Edited: len(updated) > 0, PreviousDuration: old}
	if len(updated) > 0 {
		res.Infraction = updated[0]
	}
	return res, err
}

// deactivate marks the user's active infractions of type t as no longer in force
func (s *Service) deactivate(ctx context.Context, guildID, userID string, t models.InfractionType) {
	n, err := s.store.DeactivateInfractions(ctx, guildID, userID, t)
	if err != nil {
		s.log.WithField("guild", guildID).WithField("user", userID).
			Error(fmt.Sprintf("No se pudieron desactivar infracciones (%s): %v", t, err))
		return
	}
	if n > 0 {
		s.log.WithField("guild", guildID).WithField("user", userID).
			Debug(fmt.Sprintf("%d infracciones (%s) desactivadas", n, t))
	}
}
