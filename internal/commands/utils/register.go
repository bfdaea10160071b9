// Package utils provides the /utils commands
package utils

import (
	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

// RegisterUtilsCommands registers the /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, d *shared.Deps) {
	group := client.CommandHandler.BuildCommandGroup(
		"utils",
		"Comandos de utilidad",
		createPingCommand(),
		createStatusCommand(d),
		createHelpCommand(),
		createStatsCommand(d),
	)

	client.CommandHandler.AddGlobalCommand(group)
}
