package dev

import (
	"fmt"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
)

// CreateScanCommand crea el comando /dev scan, que fuerza una pasada del
// programador de expiraciones
func CreateScanCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand(
		"scan",
		"Fuerza una pasada del programador de expiraciones",
		"dev",
		func(ctx *discord.CommandContext) error {
			if err := ctx.DeferEphemeral(); err != nil {
				return err
			}
			n, err := d.Scheduler.Scan(ctx.Context())
			if err != nil {
				return shared.Fail(ctx, err, true)
			}
			return ctx.EditReply(fmt.Sprintf("⏱️ %d expiraciones programadas, %d en curso, %d búsquedas de auditoría pendientes.",
				n, d.Scheduler.InFlight(), d.Correlator.Pending()))
		},
	).AsDev()
}
