package events

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildCreate(onGuildCreate)
	client.EventHandler.OnGuildDelete(onGuildDelete)
}

// joinedRecently tells a fresh join apart from the GuildCreate sent on connect
func joinedRecently(joinedAt, now time.Time) bool {
	return !joinedAt.Before(now.Add(-10 * time.Second))
}

// onGuildCreate explains the setup when the bot joins a server
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !joinedRecently(g.JoinedAt, time.Now()) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")

	if g.SystemChannelID == "" {
		return
	}
	welcome := &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🛡️",
		Description: "Registro cada acción de moderación como una infracción numerada.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📋 Canal de registro", Value: "Configúralo con `/config modlog`", Inline: true},
			{Name: "🔇 Rol de silencio", Value: "Configúralo con `/config muterole`", Inline: true},
			{Name: "🔨 Moderación", Value: "Usa `/mod` para moderar", Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcome); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// onGuildDelete logs removals and outages. Infractions in an unavailable
// guild wait for the scheduler's next scan.
func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("⚠️ Servidor no disponible: %s", g.ID), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
}
