package mod

import (
	"fmt"
	"strconv"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/bwmarrin/discordgo"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// run defers the reply, performs the action and answers with reply(res)
func run(ctx *discord.CommandContext, withDuration bool, do func(moderation.Action) (*moderation.Result, error), reply func(moderation.Action, *moderation.Result) string) error {
	if err := ctx.Defer(); err != nil {
		return err
	}
	act, err := readAction(ctx, withDuration)
	if err != nil {
		return shared.Fail(ctx, err, true)
	}
	res, err := do(act)
	if err != nil {
		return shared.Fail(ctx, err, true)
	}
	return ctx.EditReply(reply(act, res))
}

func createNoteCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("note", "Añade una nota al historial de un usuario", "mod",
		func(ctx *discord.CommandContext) error {
			return run(ctx, false,
				func(act moderation.Action) (*moderation.Result, error) { return d.Moderation.Note(ctx.Context(), act) },
				func(act moderation.Action, _ *moderation.Result) string {
					return fmt.Sprintf("📝 Created note for **%s**.", act.Target)
				})
		},
	).WithOptions(withReason(idOption())...).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createWarnCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("warn", "Advierte a un usuario", "mod",
		func(ctx *discord.CommandContext) error {
			return run(ctx, false,
				func(act moderation.Action) (*moderation.Result, error) { return d.Moderation.Warn(ctx.Context(), act) },
				func(act moderation.Action, res *moderation.Result) string {
					return fmt.Sprintf("👍 Warned **%s**. %s", act.Target, shared.Notified(res.Notified))
				})
		},
	).WithOptions(withReason(userOption(true))...).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createMuteCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("mute", "Silencia a un usuario con el rol de silencio", "mod",
		func(ctx *discord.CommandContext) error {
			return run(ctx, true,
				func(act moderation.Action) (*moderation.Result, error) { return d.Moderation.Mute(ctx.Context(), act) },
				func(act moderation.Action, res *moderation.Result) string {
					if res.Existing {
						return alreadyReply("muted", res, act.Duration)
					}
					return fmt.Sprintf("👌 Muted **%s** (%s). %s", act.Target, modlog.DurationText(act.Duration), shared.Notified(res.Notified))
				})
		},
	).WithOptions(withReason(userOption(true), durationOption())...).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createUnmuteCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("unmute", "Quita el silencio a un usuario", "mod",
		func(ctx *discord.CommandContext) error {
			return run(ctx, false,
				func(act moderation.Action) (*moderation.Result, error) { return d.Moderation.Unmute(ctx.Context(), act) },
				func(act moderation.Action, res *moderation.Result) string {
					return fmt.Sprintf("🙏 Unmuted **%s**. %s", act.Target, shared.Notified(res.Notified))
				})
		},
	).WithOptions(withReason(userOption(true))...).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createKickCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("kick", "Expulsa a un usuario del servidor", "mod",
		func(ctx *discord.CommandContext) error {
			return run(ctx, false,
				func(act moderation.Action) (*moderation.Result, error) { return d.Moderation.Kick(ctx.Context(), act) },
				func(act moderation.Action, res *moderation.Result) string {
					return fmt.Sprintf("👏 Kicked **%s**. %s", act.Target, shared.Notified(res.Notified))
				})
		},
	).WithOptions(withReason(userOption(true))...).WithUserPermissions(discordgo.PermissionKickMembers)
}

func createBanCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("ban", "Banea a un usuario, esté o no en el servidor", "mod",
		func(ctx *discord.CommandContext) error {
			return run(ctx, true,
				func(act moderation.Action) (*moderation.Result, error) { return d.Moderation.Ban(ctx.Context(), act) },
				func(act moderation.Action, res *moderation.Result) string {
					if res.Existing {
						return alreadyReply("banned", res, act.Duration)
					}
					verb := "Banned"
					if res.Forced {
						verb = "Forcebanned"
					}
					return fmt.Sprintf("🔨 %s **%s** (%s). %s", verb, act.Target, modlog.DurationText(act.Duration), shared.Notified(res.Notified))
				})
		},
	).WithOptions(withReason(idOption(), durationOption())...).WithUserPermissions(discordgo.PermissionBanMembers)
}

func createUnbanCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("unban", "Levanta el baneo de un usuario", "mod",
		func(ctx *discord.CommandContext) error {
			return run(ctx, false,
				func(act moderation.Action) (*moderation.Result, error) { return d.Moderation.Unban(ctx.Context(), act) },
				func(act moderation.Action, _ *moderation.Result) string {
					return fmt.Sprintf("🙏 Unbanned **%s**.", act.Target)
				})
		},
	).WithOptions(withReason(idOption())...).WithUserPermissions(discordgo.PermissionBanMembers)
}
