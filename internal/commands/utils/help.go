package utils

import (
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

const helpText = "📖 **Ayuda de PancyModlog**\n\n" +
	"**Moderación** (`/mod`)\n" +
	"• `note`, `warn`, `kick`: registran una infracción\n" +
	"• `mute`, `ban` con `duracion`: se levantan solos al expirar\n" +
	"• `unmute`, `unban`: levantan la sanción activa\n" +
	"• `massban`, `massmute`: una sola entrada de registro para varios usuarios\n\n" +
	"**Infracciones** (`/infraction`, `/history`)\n" +
	"• `info`, `view`, `raw`, `search`: consulta\n" +
	"• `reason`, `note`, `duration`, `bulk-edit`: edición, también del mensaje del modlog\n" +
	"• `/history show|raw|delete`: historial por usuario\n\n" +
	"**Configuración** (`/config`)\n" +
	"• `modlog`, `muterole`, `dm`, `show`\n\n" +
	"Las acciones hechas a mano en Discord (baneos, expulsiones, cambios del rol de silencio) también se registran."

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra información de ayuda",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.ReplyEphemeral(helpText)
		},
	)
}
