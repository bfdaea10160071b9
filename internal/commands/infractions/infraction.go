package infractions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/database"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/bwmarrin/discordgo"
)

var minID = 1.0

func idOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "id",
		Description: "Número de la infracción",
		Required:    true,
		MinValue:    &minID,
	}
}

func textOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    true,
		MaxLength:   1000,
	}
}

// nameResolver resolves user ids through the state cache, then the API,
// remembering each answer for the rest of the command
func nameResolver(ctx *discord.CommandContext) NameFunc {
	seen := make(map[string]string)
	return func(id string) string {
		if name, ok := seen[id]; ok {
			return name
		}
		name := id
		if m, err := ctx.Session.State.Member(ctx.Interaction.GuildID, id); err == nil && m.User != nil {
			name = discord.ToUser(m.User).String()
		} else if u, err := ctx.Session.User(id); err == nil {
			name = discord.ToUser(u).String()
		}
		seen[id] = name
		return name
	}
}

// getInfraction reads the id option and loads the infraction
func getInfraction(ctx *discord.CommandContext, d *shared.Deps) (*models.Infraction, error) {
	return d.Store.GetInfraction(ctx.Context(), ctx.Interaction.GuildID, ctx.GetIntOption("id"))
}

func createViewCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("view", "Muestra el mensaje del modlog de una infracción", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			msg, err := d.Modlog.FetchInfractionMessage(ctx.Context(), ctx.Interaction.GuildID, ctx.GetIntOption("id"))
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(msg.Content + "\n" + JumpURL(ctx.Interaction.GuildID, msg.ChannelID, msg.ID))
		},
	).WithOptions(idOption()).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createInfoCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("info", "Muestra los datos guardados de una infracción", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			inf, err := getInfraction(ctx, d)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(FormatInfo(inf, nameResolver(ctx), time.Now()))
		},
	).WithOptions(idOption()).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createRawCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("raw", "Muestra una infracción en formato JSON", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			inf, err := getInfraction(ctx, d)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			text, err := FormatRaw(inf)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(text)
		},
	).WithOptions(idOption()).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createDeleteCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("delete", "Quita una infracción del historial de su usuario", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			inf, err := d.Store.RemoveFromHistory(ctx.Context(), ctx.Interaction.GuildID, ctx.GetIntOption("id"))
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(fmt.Sprintf("✅ Removed infraction #%d (%s) for user %s.",
				inf.InfractionID, inf.Type, nameResolver(ctx)(inf.UserID)))
		},
	).WithOptions(idOption()).WithUserPermissions(discordgo.PermissionAdministrator)
}

// editReply reports an edit. A modlog message that could not be updated
// does not undo the stored change.
func editReply(ctx *discord.CommandContext, d *shared.Deps, id int64, err error) error {
	var missing *moderrors.ModlogMessageNotFoundError
	var unset *moderrors.NotConfiguredError
	if errors.As(err, &missing) || errors.As(err, &unset) {
		return ctx.EditReply(fmt.Sprintf("✅ Edited infraction #%d. *%s*", id, moderrors.UserMessage(err)))
	}
	if err != nil {
		return shared.Fail(ctx, err, true)
	}
	msg, err := d.Modlog.FetchInfractionMessage(ctx.Context(), ctx.Interaction.GuildID, id)
	if err != nil {
		return ctx.EditReply(fmt.Sprintf("✅ Edited infraction #%d.", id))
	}
	return ctx.EditReply(JumpURL(ctx.Interaction.GuildID, msg.ChannelID, msg.ID))
}

// confirmLinked asks before an edit that spreads over a mass action
func confirmLinked(ctx *discord.CommandContext, inf *models.Infraction) error {
	if inf.BulkRange == nil {
		return nil
	}
	n := inf.BulkRange.End - inf.BulkRange.Start + 1
	return ctx.Confirm(fmt.Sprintf("This will edit %d infractions. Are you sure?", n))
}

// editText changes the reason or note of an infraction and every infraction
// sharing its mass action
func editText(ctx *discord.CommandContext, d *shared.Deps, edit modlog.Edit) error {
	if err := ctx.Defer(); err != nil {
		return err
	}
	inf, err := getInfraction(ctx, d)
	if err != nil {
		return shared.Fail(ctx, err, true)
	}
	if err := confirmLinked(ctx, inf); err != nil {
		return shared.Fail(ctx, err, true)
	}
	edit.EditedBy = shared.Moderator(ctx).String()

	if inf.BulkRange == nil {
		_, err = d.Modlog.EditInfraction(ctx.Context(), inf, edit)
		return editReply(ctx, d, inf.InfractionID, err)
	}
	linked, err := d.Modlog.Linked(ctx.Context(), inf)
	if err != nil {
		return shared.Fail(ctx, err, true)
	}
	_, _, err = d.Modlog.EditInfractionsBulk(ctx.Context(), linked, edit, true)
	return editReply(ctx, d, inf.InfractionID, err)
}

func createReasonCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("reason", "Cambia la razón de una infracción", "infractions",
		func(ctx *discord.CommandContext) error {
			reason := ctx.GetStringOption("razon")
			return editText(ctx, d, modlog.Edit{Reason: &reason})
		},
	).WithOptions(idOption(), textOption("razon", "Nueva razón")).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func createNoteCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("note", "Cambia la nota de una infracción", "infractions",
		func(ctx *discord.CommandContext) error {
			note := ctx.GetStringOption("nota")
			return editText(ctx, d, modlog.Edit{Note: &note})
		},
	).WithOptions(idOption(), textOption("nota", "Nueva nota")).WithUserPermissions(discordgo.PermissionModerateMembers)
}

// checkDurationEdit rejects duration edits that would have no effect
func checkDurationEdit(inf *models.Infraction) error {
	if !inf.Type.Ongoing() {
		return moderrors.NewModerationError("This command only works for mute and ban infractions.")
	}
	if !inf.Active {
		return moderrors.NewModerationError("This infraction is not active. Editing the duration will have no effect.")
	}
	return nil
}

func createDurationCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("duration", "Cambia la duración de un silencio o baneo activo", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			dur, err := shared.DurationOption(ctx, "duracion", nil)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			inf, err := getInfraction(ctx, d)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			if err := checkDurationEdit(inf); err != nil {
				return shared.Fail(ctx, err, true)
			}
			if err := confirmLinked(ctx, inf); err != nil {
				return shared.Fail(ctx, err, true)
			}
			_, err = d.Modlog.EditDuration(ctx.Context(), inf, dur, shared.Moderator(ctx).String())
			return editReply(ctx, d, inf.InfractionID, err)
		},
	).WithOptions(idOption(), textOption("duracion", "Nueva duración, por ejemplo 1w2d, 12h o perm")).
		WithUserPermissions(discordgo.PermissionModerateMembers)
}

// maxBulkEdit bounds one bulk edit
const maxBulkEdit = 1000

func createBulkEditCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("bulk-edit", "Edita un rango de infracciones a la vez", "infractions",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Defer(); err != nil {
				return err
			}
			start, end := ctx.GetIntOption("desde"), ctx.GetIntOption("hasta")
			if end < start {
				start, end = end, start
			}
			if end-start+1 > maxBulkEdit {
				return shared.Fail(ctx, moderrors.NewModerationError("You can edit at most %d infractions at once.", maxBulkEdit), true)
			}
			field, value := ctx.GetStringOption("campo"), ctx.GetStringOption("valor")
			edit, err := bulkEdit(field, value)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			edit.EditedBy = shared.Moderator(ctx).String()

			ids := models.BulkRange{Start: start, End: end}.IDs()
			if err := ctx.Confirm(fmt.Sprintf("This will edit %d infractions and all associated messages. Are you sure?", len(ids))); err != nil {
				return shared.Fail(ctx, err, true)
			}
			infs, err := d.Store.GetInfractionsBulk(ctx.Context(), ctx.Interaction.GuildID, ids)
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			if edit.Duration != nil {
				for _, inf := range infs {
					if !inf.Type.Ongoing() {
						return shared.Fail(ctx, moderrors.NewModerationError("Editing duration only works for mute and ban infractions."), true)
					}
				}
			}
			updated, messages, err := d.Modlog.EditInfractionsBulk(ctx.Context(), infs, edit, false)
			if err != nil && updated == nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(fmt.Sprintf("Edited %d infractions and %d messages.", len(updated), messages))
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "campo",
			Description: "Campo a editar",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "razón", Value: "reason"},
				{Name: "nota", Value: "note"},
				{Name: "duración", Value: "duration"},
			},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "desde",
			Description: "Primera infracción del rango",
			Required:    true,
			MinValue:    &minID,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "hasta",
			Description: "Última infracción del rango",
			Required:    true,
			MinValue:    &minID,
		},
		textOption("valor", "Nuevo valor"),
	).WithUserPermissions(discordgo.PermissionAdministrator)
}

// bulkEdit builds the edit for one field of a bulk edit
func bulkEdit(field, value string) (modlog.Edit, error) {
	switch field {
	case "reason":
		v := strings.TrimSpace(value)
		return modlog.Edit{Reason: &v}, nil
	case "note":
		v := strings.TrimSpace(value)
		return modlog.Edit{Note: &v}, nil
	case "duration":
		d, err := modlog.ParseDuration(value)
		if err != nil {
			return modlog.Edit{}, moderrors.NewModerationError("Invalid duration `%s`.", value)
		}
		return modlog.Edit{Duration: &database.DurationChange{Duration: d}}, nil
	}
	return modlog.Edit{}, moderrors.NewModerationError("Unknown field `%s`.", field)
}
