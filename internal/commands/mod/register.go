// Package mod provides the moderation actions as subcommands under /mod
package mod

import (
	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

// RegisterModCommands registers all moderation commands as /mod subcommands
func RegisterModCommands(client *discord.ExtendedClient, d *shared.Deps) {
	modGroup := client.CommandHandler.BuildCommandGroup(
		"mod",
		"Comandos de moderación",
		createNoteCommand(d),
		createWarnCommand(d),
		createMuteCommand(d),
		createUnmuteCommand(d),
		createKickCommand(d),
		createBanCommand(d),
		createUnbanCommand(d),
		createMassBanCommand(d),
		createMassMuteCommand(d),
	)

	client.CommandHandler.AddGlobalCommand(modGroup)
}
