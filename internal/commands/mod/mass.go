package mod

import (
	"fmt"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/bwmarrin/discordgo"
)

// maxMassTargets bounds one mass action
const maxMassTargets = 500

func massOptions() []*discordgo.ApplicationCommandOption {
	return withReason(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "usuarios",
			Description: "Menciones o IDs separados por espacios o comas",
			Required:    true,
		},
		durationOption(),
	)
}

// readMassAction parses the targets without resolving them, since mass
// targets are often accounts that already left
func readMassAction(ctx *discord.CommandContext) (moderation.MassAction, error) {
	ids := shared.ParseUserIDs(ctx.GetStringOption("usuarios"))
	if len(ids) == 0 {
		return moderation.MassAction{}, moderrors.NewModerationError("You need to provide at least one user ID or mention.")
	}
	if len(ids) > maxMassTargets {
		return moderation.MassAction{}, moderrors.NewModerationError("You can target at most %d users at once.", maxMassTargets)
	}
	targets := make([]modlog.User, len(ids))
	for i, id := range ids {
		targets[i] = modlog.User{ID: id}
	}
	d, err := shared.DurationOption(ctx, "duracion", nil)
	if err != nil {
		return moderation.MassAction{}, err
	}
	return moderation.MassAction{
		GuildID:   ctx.Interaction.GuildID,
		Targets:   targets,
		Moderator: shared.Moderator(ctx),
		Reason:    ctx.GetStringOption("razon"),
		Note:      ctx.GetStringOption("nota"),
		Duration:  d,
	}, nil
}

func runMass(ctx *discord.CommandContext, verb, past, state string, do func(moderation.MassAction) (*moderation.MassResult, error)) error {
	if err := ctx.Defer(); err != nil {
		return err
	}
	act, err := readMassAction(ctx)
	if err != nil {
		return shared.Fail(ctx, err, true)
	}
	n := len(act.Targets)
	if err := ctx.Confirm(fmt.Sprintf("Are you sure you would like to %s %d user%s?", verb, n, shared.Plural(n))); err != nil {
		return shared.Fail(ctx, err, true)
	}
	res, err := do(act)
	if err != nil {
		return shared.Fail(ctx, err, true)
	}
	return ctx.EditReply(res.Summary(past, state, act.Duration))
}

func createMassBanCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("massban", "Banea a varios usuarios en una sola acción", "mod",
		func(ctx *discord.CommandContext) error {
			return runMass(ctx, "ban", "Banned", "banned", func(act moderation.MassAction) (*moderation.MassResult, error) {
				return d.Moderation.MassBan(ctx.Context(), act)
			})
		},
	).WithOptions(massOptions()...).WithUserPermissions(discordgo.PermissionAdministrator)
}

func createMassMuteCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("massmute", "Silencia a varios usuarios en una sola acción", "mod",
		func(ctx *discord.CommandContext) error {
			return runMass(ctx, "mute", "Muted", "muted", func(act moderation.MassAction) (*moderation.MassResult, error) {
				return d.Moderation.MassMute(ctx.Context(), act)
			})
		},
	).WithOptions(massOptions()...).WithUserPermissions(discordgo.PermissionAdministrator)
}
