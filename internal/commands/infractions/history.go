package infractions

import (
	"fmt"
	"strconv"
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/bwmarrin/discordgo"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func historyUserOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "usuario",
		Description: "Mención o ID del usuario",
		Required:    true,
	}
}

// loadHistory resolves the user option and loads their history, failing
// when they have none
func loadHistory(ctx *discord.CommandContext, d *shared.Deps) (modlog.User, *models.History, error) {
	user, ok := shared.UserOption(ctx, "usuario")
	if !ok {
		return user, nil, moderrors.NewModerationError("I couldn't find that user.")
	}
	h, err := d.Store.GetHistory(ctx.Context(), ctx.Interaction.GuildID, user.ID)
	if err != nil {
		return user, nil, err
	}
	if h == nil {
		return user, nil, &moderrors.HistoryNotFoundError{UserID: user.ID}
	}
	return user, h, nil
}

func createHistoryShowCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("show", "Muestra las infracciones recientes de un usuario", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			user, h, err := loadHistory(ctx, d)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			ids := make([]int64, 0)
			for id := range h.All() {
				ids = append(ids, id)
			}
			infs, err := d.Store.GetInfractionsBulk(ctx.Context(), ctx.Interaction.GuildID, ids)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(FormatHistory(user.String(), infs, nameResolver(ctx), time.Now()))
		},
	).WithOptions(historyUserOption()).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createHistoryRawCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("raw", "Muestra las listas del historial de un usuario", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			user, h, err := loadHistory(ctx, d)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(FormatHistoryRaw(user.String(), h))
		},
	).WithOptions(historyUserOption()).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createHistoryDeleteCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("delete", "Borra el historial de un usuario", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			user, _, err := loadHistory(ctx, d)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			prompt := fmt.Sprintf("Are you sure you want to wipe infraction history for %s? "+
				"This could result in currently-active infractions behaving unexpectedly.", user)
			if err := ctx.Confirm(prompt); err != nil {
				return shared.Fail(ctx, err, true)
			}
			if err := d.Store.DeleteHistory(ctx.Context(), ctx.Interaction.GuildID, user.ID); err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(fmt.Sprintf("✅ Removed infraction history for %s.", user))
		},
	).WithOptions(historyUserOption()).WithUserPermissions(discordgo.PermissionAdministrator)
}
