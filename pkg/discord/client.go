// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with command routing, button confirmations and the
// platform adapter the moderation engine acts through.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		default:
			logger.Debug(msg, "DiscordGo")
		}
	}
}

// interactionTimeout is how long an interaction token stays valid
const interactionTimeout = 15 * time.Minute

// ExtendedClient is the gateway session plus the slash commands, the
// confirmation waiter and the platform the moderation engine acts through
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	Platform       *Platform
	Waiter         *Waiter
	StartTime      time.Time
	mu             sync.RWMutex
	isReady        bool
	onReady        []func(u *discordgo.User)
}

// CommandCollection maps routed names such as "infraction.reason" to commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init creates the bot's client once
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// NewClient builds a client without opening the gateway
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	// Members and bans drive the external-action watcher
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.State.TrackMembers = true
	session.State.TrackRoles = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:  session,
		Commands: NewCommandCollection(),
		Platform: NewPlatform(session),
		Waiter:   NewWaiter(),
	}

	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// OnReady registers fn to run with the bot's user each time the session is ready
func (c *ExtendedClient) OnReady(fn func(u *discordgo.User)) {
	c.mu.Lock()
	c.onReady = append(c.onReady, fn)
	c.mu.Unlock()
}

// Start opens the gateway. Ready hooks run on every (re)connect, then the
// slash commands are synced.
func (c *ExtendedClient) Start() error {
	if err := c.CommandHandler.LoadCommands(); err != nil {
		return fmt.Errorf("load commands: %w", err)
	}
	if err := c.EventHandler.LoadEvents(); err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	c.EventHandler.OnReady(func(s *discordgo.Session, r *discordgo.Ready) {
		c.mu.Lock()
		c.isReady = true
		hooks := append([]func(*discordgo.User){}, c.onReady...)
		c.mu.Unlock()

		logger.Success("Bot conectado como: "+r.User.Username, "Client")
		for _, fn := range hooks {
			fn(r.User)
		}

		c.CommandHandler.RegisterCommands()
	})

	c.EventHandler.Register("InteractionCreate", c.handleInteraction)

	c.StartTime = time.Now()

	return c.Session.Open()
}

// commandName builds the registry key, e.g. "infraction.reason"
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) > 0 {
		opt := data.Options[0]
		if opt.Type == discordgo.ApplicationCommandOptionSubCommandGroup {
			if len(opt.Options) > 0 {
				name = data.Name + "." + opt.Name + "." + opt.Options[0].Name
			}
		} else if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			name = data.Name + "." + opt.Name
		}
	}
	return name
}

// handleInteraction routes buttons to the waiter and slash commands to their
// handlers. A command runs with a context bounded by the interaction token.
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer moderrors.RecoverMiddleware()()

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		if !c.Waiter.Dispatch(i) {
			logger.Debug("Componente sin espera activa: "+i.MessageComponentData().CustomID, "Client")
		}
		return
	case discordgo.InteractionApplicationCommandAutocomplete:
		cmd, ok := c.Commands.Get(commandName(i.ApplicationCommandData()))
		if ok && cmd.AutoComplete != nil {
			cmd.AutoComplete(&CommandContext{Session: s, Interaction: i, Client: c})
		}
		return
	case discordgo.InteractionApplicationCommand:
	default:
		return
	}

	name := commandName(i.ApplicationCommandData())
	cmd, ok := c.Commands.Get(name)
	if !ok {
		logger.Warn("Comando no encontrado: "+name, "Client")
		return
	}

	runCtx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	ctx := &CommandContext{
		Session:     s,
		Interaction: i,
		Client:      c,
		ctx:         runCtx,
	}

	if err := c.CommandMiddleware(ctx, cmd); err != nil {
		return
	}

	if err := cmd.Run(ctx); err != nil {
		logger.WithFields(logger.Fields{"guild": i.GuildID, "user": ctx.User().ID}, "Client").
			Error("Error ejecutando /" + strings.ReplaceAll(name, ".", " ") + ": " + err.Error())
	}
}

// Stop detaches the event handlers so no new infractions are recorded, then
// closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.EventHandler != nil {
		c.EventHandler.RemoveAll()
	}

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of cached guilds
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}
