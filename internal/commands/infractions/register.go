// Package infractions provides the /infraction and /history commands, which
// read and edit recorded infractions
package infractions

import (
	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

// RegisterInfractionCommands registers the /infraction and /history groups
func RegisterInfractionCommands(client *discord.ExtendedClient, d *shared.Deps) {
	infraction := client.CommandHandler.BuildCommandGroup(
		"infraction",
		"Consulta y edita infracciones",
		createViewCommand(d),
		createInfoCommand(d),
		createRawCommand(d),
		createDeleteCommand(d),
		createReasonCommand(d),
		createNoteCommand(d),
		createDurationCommand(d),
		createBulkEditCommand(d),
		createSearchCommand(d),
	)
	client.CommandHandler.AddGlobalCommand(infraction)

	history := client.CommandHandler.BuildCommandGroup(
		"history",
		"Consulta el historial de infracciones de un usuario",
		createHistoryShowCommand(d),
		createHistoryRawCommand(d),
		createHistoryDeleteCommand(d),
	)
	client.CommandHandler.AddGlobalCommand(history)
}
