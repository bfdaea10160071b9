package infractions

import (
	"bytes"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/database"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// searchQuery builds the query from the command options
func searchQuery(ctx *discord.CommandContext) (database.SearchQuery, error) {
	q := database.SearchQuery{
		Keywords: strings.Fields(ctx.GetStringOption("palabras")),
		Or:       ctx.GetBoolOption("o"),
		Not:      ctx.GetBoolOption("negar"),
	}
	if u := ctx.GetUserOption("usuario"); u != nil {
		q.UserID = u.ID
	}
	if m := ctx.GetUserOption("moderador"); m != nil {
		q.ModID = m.ID
	}
	if raw := ctx.GetStringOption("tipo"); raw != "" {
		t, ok := models.ParseInfractionType(raw)
		if !ok {
			return q, moderrors.NewModerationError("Unknown infraction type `%s`.", raw)
		}
		q.Type = t
	}
	if opt := ctx.GetOption("activa"); opt != nil {
		active := opt.BoolValue()
		q.Active = &active
	}
	return q, nil
}

func typeChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(models.HistoryTypes)+1)
	for _, t := range append(append([]models.InfractionType{}, models.HistoryTypes...), models.TypeForceban) {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: string(t), Value: string(t)})
	}
	return choices
}

func createSearchCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("search", "Busca infracciones por usuario, moderador, tipo o texto", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			q, err := searchQuery(ctx)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			guildID := ctx.Interaction.GuildID

			if ctx.GetBoolOption("contar") {
				n, err := d.Store.Count(ctx.Context(), guildID, q)
				if err != nil {
					return shared.Fail(ctx, err, true)
				}
				return ctx.EditReply(fmtCount(n))
			}

			start := time.Now()
			infs, err := d.Store.Search(ctx.Context(), guildID, q)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			text, fits := FormatSearch(infs, time.Since(start))
			if fits {
				return ctx.EditReply(text)
			}
			content := "Too many results..."
			_, err = ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
				Content: &content,
				Files: []*discordgo.File{{
					Name:        "results.txt",
					ContentType: "text/plain",
					Reader:      bytes.NewReader([]byte(text)),
				}},
			})
			return err
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "palabras", Description: "Palabras a buscar en la razón o la nota"},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: "usuario", Description: "Usuario infractor"},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: "moderador", Description: "Moderador responsable"},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "tipo", Description: "Tipo de infracción", Choices: typeChoices()},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "activa", Description: "Solo infracciones activas o inactivas"},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "o", Description: "Une los criterios con O en lugar de Y"},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "negar", Description: "Invierte el resultado"},
		&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "contar", Description: "Solo cuenta los resultados"},
	).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func fmtCount(n int64) string {
	return "I found " + itoa(n) + " infractions."
}
