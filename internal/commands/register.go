// Package commands wires every slash command group into the client.
// Each group lives in its own subpackage.
package commands

import (
	"github.com/PancyStudios/PancyModlog/internal/commands/dev"
	"github.com/PancyStudios/PancyModlog/internal/commands/infractions"
	"github.com/PancyStudios/PancyModlog/internal/commands/mod"
	"github.com/PancyStudios/PancyModlog/internal/commands/settings"
	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/internal/commands/utils"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, d *shared.Deps) {
	utils.RegisterUtilsCommands(client, d)

	// /mod note|warn|mute|unmute|kick|ban|unban|massban|massmute
	mod.RegisterModCommands(client, d)

	// /infraction and /history
	infractions.RegisterInfractionCommands(client, d)

	settings.RegisterSettingsCommands(client, d)

	dev.Register(client, d)
}
