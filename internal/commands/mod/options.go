package mod

import (
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/bwmarrin/discordgo"
)

func userOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: "Usuario afectado",
		Required:    required,
	}
}

// idOption accepts users that are no longer in the guild
func idOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "usuario",
		Description: "Mención o ID del usuario",
		Required:    true,
	}
}

func durationOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duracion",
		Description: "Duración, por ejemplo 1w2d, 12h o perm",
	}
}

func reasonOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "razon",
			Description: "Razón visible para el usuario",
			MaxLength:   1000,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "nota",
			Description: "Nota interna para los moderadores",
			MaxLength:   1000,
		},
	}
}

func withReason(opts ...*discordgo.ApplicationCommandOption) []*discordgo.ApplicationCommandOption {
	return append(opts, reasonOptions()...)
}

// readAction builds the action shared by the single-user commands
func readAction(ctx *discord.CommandContext, withDuration bool) (moderation.Action, error) {
	target, ok := shared.UserOption(ctx, "usuario")
	if !ok {
		return moderation.Action{}, moderrors.NewModerationError("I couldn't find that user.")
	}
	act := moderation.Action{
		GuildID:   ctx.Interaction.GuildID,
		Target:    target,
		Moderator: shared.Moderator(ctx),
		Reason:    ctx.GetStringOption("razon"),
		Note:      ctx.GetStringOption("nota"),
	}
	if withDuration {
		d, err := shared.DurationOption(ctx, "duracion", nil)
		if err != nil {
			return act, err
		}
		act.Duration = d
		act.EditDuration = true
	}
	return act, nil
}

// alreadyReply renders the reply for a repeated mute or ban
func alreadyReply(state string, res *moderation.Result, d *time.Duration) string {
	msg := "⚠️ User is already " + state + " (#" + itoa(res.Infraction.InfractionID) + ")"
	if !res.Edited {
		return msg + "."
	}
	return msg + ", changed duration instead (" + modlog.DurationText(res.PreviousDuration) + " -> " + modlog.DurationText(d) + ")."
}
