package utils

import (
	"fmt"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.Reply(statusText(d, ctx.Client.GuildCount()))
		},
	)
}

func statusText(d *shared.Deps, guilds int) string {
	dbStatus := "🟣 En memoria"
	if d.DatabaseStatus != nil {
		dbStatus, _ = d.DatabaseStatus()
	}
	pending, inFlight := 0, 0
	if d.Correlator != nil {
		pending = d.Correlator.Pending()
	}
	if d.Scheduler != nil {
		inFlight = d.Scheduler.InFlight()
	}
	return fmt.Sprintf(
		"📊 **Estado del Bot**\n"+
			"• Bot: 🟢 Online\n"+
			"• Base de datos: %s\n"+
			"• Servidores: %d\n"+
			"• Búsquedas de auditoría pendientes: %d\n"+
			"• Expiraciones en curso: %d",
		dbStatus, guilds, pending, inFlight,
	)
}
