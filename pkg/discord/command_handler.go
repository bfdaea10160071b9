// Package discord provides the command handler for loading and registering commands.
package discord

import (
	"fmt"

	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler manages command loading and registration
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// LoadCommands reports what was registered programmatically
func (ch *CommandHandler) LoadCommands() error {
	logger.System(fmt.Sprintf("Comandos cargados: %d globales, %d de desarrollo", len(ch.slashCommands), len(ch.slashCommandsDev)), "CommandHandler")
	return nil
}

// RegisterCommand adds a command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()

	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

// BuildCommandGroup creates a command group with subcommands. The group is
// shown by default to members holding the permissions every subcommand
// needs; stricter subcommands are enforced by the middleware.
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))
	perms := int64(-1)

	for _, cmd := range subcommands {
		fullName := name + "." + cmd.Name
		ch.client.Commands.Set(fullName, cmd)
		perms &= cmd.UserPermissions

		opt := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		}
		options = append(options, opt)
	}

	appCmd := &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
	if len(subcommands) > 0 && perms != 0 {
		appCmd.DefaultMemberPermissions = &perms
	}
	return appCmd
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// AddDevCommand adds a command to the dev command list
func (ch *CommandHandler) AddDevCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommandsDev = append(ch.slashCommandsDev, cmd)
}

// GlobalCommands returns the global command definitions
func (ch *CommandHandler) GlobalCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

// DevCommands returns the dev guild command definitions
func (ch *CommandHandler) DevCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommandsDev
}

// appID returns the application id, asking the API when no gateway session is open
func (ch *CommandHandler) appID() (string, error) {
	s := ch.client.Session
	if s.State != nil && s.State.User != nil {
		return s.State.User.ID, nil
	}
	u, err := s.User("@me")
	if err != nil {
		return "", fmt.Errorf("resolve application id: %w", err)
	}
	return u.ID, nil
}

// RegisterCommands overwrites the global and dev guild commands with the current definitions
func (ch *CommandHandler) RegisterCommands() {
	logger.Info("🔄 Registrando comandos globales...", "CommandHandler")
	if err := ch.SyncCommands(""); err != nil {
		logger.Error("Error registrando comandos: "+err.Error(), "CommandHandler")
	} else {
		logger.Success("✅ Comandos globales registrados.", "CommandHandler")
	}

	cfg := config.Get()
	if cfg.DevGuildID != "" && len(ch.slashCommandsDev) > 0 {
		logger.Info("🔄 Registrando comandos de desarrollo en el servidor "+cfg.DevGuildID+"...", "CommandHandler")
		if err := ch.SyncCommands(cfg.DevGuildID); err != nil {
			logger.Error("Error registrando comandos de desarrollo: "+err.Error(), "CommandHandler")
			return
		}
		logger.Success("✅ Comandos de desarrollo registrados.", "CommandHandler")
	}
}

// SyncCommands replaces the commands registered with Discord, dropping stale
// ones. An empty guildID targets the global commands.
func (ch *CommandHandler) SyncCommands(guildID string) error {
	appID, err := ch.appID()
	if err != nil {
		return err
	}
	cmds := ch.slashCommands
	if guildID != "" {
		cmds = ch.slashCommandsDev
	}
	_, err = ch.client.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	return err
}

// ListCommands returns the commands Discord has registered. An empty guildID lists the global ones.
func (ch *CommandHandler) ListCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	appID, err := ch.appID()
	if err != nil {
		return nil, err
	}
	return ch.client.Session.ApplicationCommands(appID, guildID)
}

// UnregisterCommands removes every command registered with Discord
func (ch *CommandHandler) UnregisterCommands(guildID string) error {
	appID, err := ch.appID()
	if err != nil {
		return err
	}
	commands, err := ch.client.Session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		err := ch.client.Session.ApplicationCommandDelete(appID, guildID, cmd.ID)
		if err != nil {
			logger.Error("Error eliminando comando "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d comandos eliminados.", len(commands)), "CommandHandler")
	return nil
}
