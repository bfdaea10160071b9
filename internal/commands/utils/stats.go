package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createStatsCommand creates the /utils stats subcommand
func createStatsCommand(d *shared.Deps) *discord.Command {
	return discord.NewCommand(
		"stats",
		"Muestra estadísticas del bot",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.ReplyEmbed(statsEmbed(ctx, d))
		},
	)
}

// statsEmbed collects runtime and moderation statistics
func statsEmbed(ctx *discord.CommandContext, d *shared.Deps) *discordgo.MessageEmbed {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	numGoroutines := runtime.NumGoroutine()
	numCPU := runtime.NumCPU()

	botVersion := config.Version
	goVersion := strings.TrimPrefix(runtime.Version(), "go")
	discordgoVersion := discordgo.VERSION

	guildCount := ctx.Client.GuildCount()
	memberCount := 0
	for _, guild := range ctx.Session.State.Guilds {
		memberCount += guild.MemberCount
	}

	uptime := time.Since(ctx.Client.StartTime)

	cached := 0
	if d.Configs != nil {
		cached = d.Configs.Size()
	}

	embed := &discordgo.MessageEmbed{
		Title: "📊 Estadísticas del Bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🤖 Versión del Bot",
				Value:  botVersion,
				Inline: true,
			},
			{
				Name:   "🐹 Versión de Go",
				Value:  goVersion,
				Inline: true,
			},
			{
				Name:   "📚 Versión de DiscordGo",
				Value:  discordgoVersion,
				Inline: true,
			},
			{
				Name:   "🖥 Uso de RAM",
				Value:  fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
				Inline: true,
			},
			{
				Name:   "⚙ ️Uso de CPU",
				Value:  fmt.Sprintf("%d Goroutines / %d CPUs", numGoroutines, numCPU),
				Inline: true,
			},
			{
				Name:   "⏱ Uptime",
				Value:  formatDuration(uptime),
				Inline: true,
			},
			{
				Name:   "🏠 Guilds",
				Value:  fmt.Sprintf("%d", guildCount),
				Inline: true,
			},
			{
				Name:   "👥 Miembros",
				Value:  fmt.Sprintf("%d", memberCount),
				Inline: true,
			},
			{
				Name:   "⚙️ Configuraciones en caché",
				Value:  fmt.Sprintf("%d", cached),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "💫 - Developed by PancyStudios",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if u := ctx.Session.State.User; u != nil {
		embed.Footer.IconURL = u.AvatarURL("")
	}
	return embed
}

// formatDuration formats a time.Duration into a human-readable string
func formatDuration(dur time.Duration) string {
	days := int(dur.Hours() / 24)
	hours := int(dur.Hours()) % 24
	minutes := int(dur.Minutes()) % 60
	seconds := int(dur.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d días", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d horas", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutos", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%d segundos", seconds))
	}

	return strings.Join(parts, ", ")
}
