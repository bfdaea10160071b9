package dev

import (
	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

// Register registers the /dev subcommands in the dev guild only
func Register(client *discord.ExtendedClient, d *shared.Deps) {
	devGroup := client.CommandHandler.BuildCommandGroup(
		"dev",
		"Comandos de desarrollo",
		CreateEvalCommand(d),
		CreateScanCommand(d),
	)

	client.CommandHandler.AddDevCommand(devGroup)
}
