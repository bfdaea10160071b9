// Package shared holds what every slash command package needs: the engine
// components and a few option and reply helpers.
package shared

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/audit"
	"github.com/PancyStudios/PancyModlog/pkg/database"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/PancyStudios/PancyModlog/pkg/scheduler"
	"github.com/bwmarrin/discordgo"
)

// Deps are the components commands act through
type Deps struct {
	Moderation *moderation.Service
	Modlog     *modlog.Modlog
	Store      *database.Store
	Configs    *database.GuildConfigCache
	Scheduler  *scheduler.Scheduler
	Correlator *audit.Correlator
	// DatabaseStatus reports the storage connection, nil for in-memory storage
	DatabaseStatus func() (string, bool)
}

// Moderator returns the invoking user as a modlog user
func Moderator(ctx *discord.CommandContext) modlog.User {
	return discord.ToUser(ctx.User())
}

// UserOption reads a user option. Users given as a raw id are resolved
// through the API when possible.
func UserOption(ctx *discord.CommandContext, name string) (modlog.User, bool) {
	opt := ctx.GetOption(name)
	if opt == nil {
		return modlog.User{}, false
	}
	if opt.Type == discordgo.ApplicationCommandOptionUser {
		u := opt.UserValue(ctx.Session)
		if u == nil {
			return modlog.User{}, false
		}
		return discord.ToUser(u), true
	}
	id := ParseUserID(opt.StringValue())
	if id == "" {
		return modlog.User{}, false
	}
	if u, err := ctx.Session.User(id); err == nil {
		return discord.ToUser(u), true
	}
	return modlog.User{ID: id}, true
}

// ParseUserID accepts a snowflake or a mention
func ParseUserID(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSuffix(s, ">")
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return ""
	}
	return s
}

// ParseUserIDs splits a whitespace or comma separated list of ids and mentions
func ParseUserIDs(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		if id := ParseUserID(f); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// DurationOption parses a duration option. An absent option gives
// fallback; "perm" gives nil.
func DurationOption(ctx *discord.CommandContext, name string, fallback *time.Duration) (*time.Duration, error) {
	raw := ctx.GetStringOption(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := modlog.ParseDuration(raw)
	if err != nil {
		return nil, moderrors.NewModerationError("Invalid duration `%s`. Use e.g. `1w2d`, `12h` or `perm`.", raw)
	}
	return d, nil
}

// Fail shows err to the invoking user and logs failures that are not
// ordinary moderation outcomes
func Fail(ctx *discord.CommandContext, err error, deferred bool) error {
	if !expected(err) {
		logger.WithFields(logger.Fields{"guild": ctx.Interaction.GuildID, "user": ctx.User().ID}, "Commands").
			Error("Error inesperado: " + err.Error())
	}
	return ctx.ReplyError(err, deferred)
}

func expected(err error) bool {
	var (
		mod        *moderrors.ModerationError
		conflict   *moderrors.ConflictError
		config     *moderrors.NotConfiguredError
		missing    *moderrors.UserNotInGuildError
		perm       *moderrors.BotMissingPermissionError
		hierarchy  *moderrors.RoleHierarchyError
		onMod      *moderrors.ModActionOnModError
		canceled   *moderrors.ActionCanceledError
		mismatched *moderrors.BulkEditMismatchError
	)
	return errors.Is(err, moderrors.ErrNotFound) ||
		errors.As(err, &mod) || errors.As(err, &conflict) || errors.As(err, &config) ||
		errors.As(err, &missing) || errors.As(err, &perm) || errors.As(err, &hierarchy) ||
		errors.As(err, &onMod) || errors.As(err, &canceled) || errors.As(err, &mismatched)
}

// Notified renders whether the DM reached the user
func Notified(delivered *bool) string {
	if delivered == nil {
		return ""
	}
	if *delivered {
		return "*User was notified.*"
	}
	return "*User was not notified.*"
}

// Plural returns "s" unless n is 1
func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
