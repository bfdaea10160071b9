package events

import (
	"fmt"

	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterReadyEvent registers the ready event handler
func RegisterReadyEvent(client *discord.ExtendedClient, h *Handlers) {
	client.EventHandler.OnReady(h.onReady)
}

// onReady hands the bot's identity to the watcher and the modlog
func (h *Handlers) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Success(fmt.Sprintf("✅ Bot conectado: %s", r.User.String()), "Ready")
	logger.Info(fmt.Sprintf("📊 Conectado a %d servidores", len(r.Guilds)), "Ready")

	h.watcher.SetBotID(r.User.ID)
	if h.modlog != nil {
		h.modlog.SetBot(discord.ToUser(r.User))
	}

	if s == nil {
		return
	}
	if err := s.UpdateWatchStatus(0, "el registro de moderación"); err != nil {
		logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
		return
	}
	logger.Debug("Estado del bot establecido correctamente", "Ready")
}
