// Package settings provides the /config commands that edit a guild's modlog
// channel, mute role and DM preference
package settings

import (
	"fmt"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// FormatConfig renders a guild's settings
func FormatConfig(cfg *models.GuildConfig) string {
	return fmt.Sprintf("This server's configuration:```\nmodlog_channel: %s\nmute_role: %s\ndm_on_infraction: %t\n```",
		idOrZero(cfg.ModlogChannelID), idOrZero(cfg.MuteRoleID), cfg.DMOnInfraction)
}

func idOrZero(id string) string {
	if id == "" {
		return "0"
	}
	return id
}

func disableOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "desactivar",
		Description: "Desactiva esta opción",
	}
}

// update applies fn and answers with done
func update(ctx *discord.CommandContext, d *shared.Deps, done string, fn func(cfg *models.GuildConfig)) error {
	guildID := ctx.Interaction.GuildID
	if _, err := d.Configs.Update(ctx.Context(), guildID, fn); err != nil {
		logger.WithFields(logger.Fields{"guild": guildID}, "Config").Error("Error guardando la configuración: " + err.Error())
		return shared.Fail(ctx, err, false)
	}
	logger.WithFields(logger.Fields{"guild": guildID, "user": ctx.User().ID}, "Config").Info("Configuración actualizada: " + done)
	return ctx.Reply("✅ " + done)
}

func createShowCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("show", "Muestra la configuración del servidor", "config",
		func(ctx *discord.CommandContext) error {
			cfg, err := d.Configs.GetConfig(ctx.Context(), ctx.Interaction.GuildID)
			if err != nil {
				return shared.Fail(ctx, err, false)
			}
			return ctx.ReplyEphemeral(FormatConfig(cfg))
		},
	).WithUserPermissions(discordgo.PermissionManageGuild)
}

func createModlogCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("modlog", "Cambia el canal de registro de moderación", "config",
		func(ctx *discord.CommandContext) error {
			if ctx.GetBoolOption("desactivar") {
				return update(ctx, d, "Modlog channel disabled.", func(cfg *models.GuildConfig) { cfg.ModlogChannelID = "" })
			}
			opt := ctx.GetOption("canal")
			if opt == nil {
				cfg, err := d.Configs.GetConfig(ctx.Context(), ctx.Interaction.GuildID)
				if err != nil {
					return shared.Fail(ctx, err, false)
				}
				c := idOrZero(cfg.ModlogChannelID)
				return ctx.ReplyEphemeral(fmt.Sprintf("My modlog is set to <#%s> (id `%s`).", c, c))
			}
			channelID := fmt.Sprint(opt.Value)
			return update(ctx, d, "Modlog channel updated.", func(cfg *models.GuildConfig) { cfg.ModlogChannelID = channelID })
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "canal",
			Description:  "Canal donde se registran las infracciones",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
		disableOption(),
	).WithUserPermissions(discordgo.PermissionManageGuild)
}

func createMuteRoleCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("muterole", "Cambia el rol de silencio", "config",
		func(ctx *discord.CommandContext) error {
			if ctx.GetBoolOption("desactivar") {
				return update(ctx, d, "Mute role disabled.", func(cfg *models.GuildConfig) { cfg.MuteRoleID = "" })
			}
			opt := ctx.GetOption("rol")
			if opt == nil {
				cfg, err := d.Configs.GetConfig(ctx.Context(), ctx.Interaction.GuildID)
				if err != nil {
					return shared.Fail(ctx, err, false)
				}
				r := idOrZero(cfg.MuteRoleID)
				return ctx.ReplyEphemeral(fmt.Sprintf("This server's mute role is set to <@&%s> (id `%s`).", r, r))
			}
			roleID := fmt.Sprint(opt.Value)
			return update(ctx, d, "Mute role updated.", func(cfg *models.GuildConfig) { cfg.MuteRoleID = roleID })
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "rol",
			Description: "Rol que se asigna a los usuarios silenciados",
		},
		disableOption(),
	).WithUserPermissions(discordgo.PermissionManageGuild)
}

func createDMCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand("dm", "Activa o desactiva los avisos por DM al sancionar", "config",
		func(ctx *discord.CommandContext) error {
			enabled := ctx.GetBoolOption("activar")
			done := "Users will no longer be sent a DM on infraction."
			if enabled {
				done = "Users will be sent a DM on infraction."
			}
			return update(ctx, d, done, func(cfg *models.GuildConfig) { cfg.DMOnInfraction = enabled })
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "activar",
			Description: "Enviar un DM al usuario sancionado",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionManageGuild)
}

// RegisterSettingsCommands registers the /config group
func RegisterSettingsCommands(client *discord.ExtendedClient, d *shared.Deps) {
	group := client.CommandHandler.BuildCommandGroup(
		"config",
		"Configura el registro de moderación del servidor",
		createShowCommand(d),
		createModlogCommand(d),
		createMuteRoleCommand(d),
		createDMCommand(d),
	)
	client.CommandHandler.AddGlobalCommand(group)
}
