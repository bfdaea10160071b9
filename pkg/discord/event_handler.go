package discord

import (
	"fmt"
	"sort"
	"sync"

	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// EventHandler keeps the gateway handlers the bot registered so they can be
// listed at startup and detached when the client stops
type EventHandler struct {
	client  *ExtendedClient
	mu      sync.Mutex
	removes map[string][]func()
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{
		client:  client,
		removes: make(map[string][]func()),
	}
}

// LoadEvents logs the handlers registered so far
func (eh *EventHandler) LoadEvents() error {
	names := eh.Names()
	logger.System(fmt.Sprintf("Eventos cargados: %d %v", len(names), names), "EventHandler")
	return nil
}

// Register adds handler to the session under name. handler must be a plain
// func type discordgo recognises, e.g. func(*discordgo.Session, *discordgo.GuildBanAdd).
func (eh *EventHandler) Register(name string, handler interface{}) {
	remove := eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.removes[name] = append(eh.removes[name], remove)
	eh.mu.Unlock()
	logger.Debug("Evento '"+name+"' registrado", "EventHandler")
}

// Names returns the registered event names, sorted
func (eh *EventHandler) Names() []string {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	names := make([]string, 0, len(eh.removes))
	for name := range eh.removes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveAll detaches every registered handler
func (eh *EventHandler) RemoveAll() {
	eh.mu.Lock()
	removes := eh.removes
	eh.removes = make(map[string][]func())
	eh.mu.Unlock()

	for _, fns := range removes {
		for _, remove := range fns {
			remove()
		}
	}
}

// OnReady registers a ready handler
func (eh *EventHandler) OnReady(handler func(*discordgo.Session, *discordgo.Ready)) {
	eh.Register("Ready", handler)
}

// OnGuildCreate registers a handler for guilds becoming available
func (eh *EventHandler) OnGuildCreate(handler func(*discordgo.Session, *discordgo.GuildCreate)) {
	eh.Register("GuildCreate", handler)
}

// OnGuildDelete registers a handler for guilds the bot left or lost
func (eh *EventHandler) OnGuildDelete(handler func(*discordgo.Session, *discordgo.GuildDelete)) {
	eh.Register("GuildDelete", handler)
}

// OnGuildMemberAdd registers a handler for joins, which re-apply persisted mutes
func (eh *EventHandler) OnGuildMemberAdd(handler func(*discordgo.Session, *discordgo.GuildMemberAdd)) {
	eh.Register("GuildMemberAdd", handler)
}

// OnGuildMemberRemove registers a handler for departures and kicks
func (eh *EventHandler) OnGuildMemberRemove(handler func(*discordgo.Session, *discordgo.GuildMemberRemove)) {
	eh.Register("GuildMemberRemove", handler)
}

// OnGuildMemberUpdate registers a handler for role changes
func (eh *EventHandler) OnGuildMemberUpdate(handler func(*discordgo.Session, *discordgo.GuildMemberUpdate)) {
	eh.Register("GuildMemberUpdate", handler)
}

// OnGuildBanAdd registers a ban handler
func (eh *EventHandler) OnGuildBanAdd(handler func(*discordgo.Session, *discordgo.GuildBanAdd)) {
	eh.Register("GuildBanAdd", handler)
}

// OnGuildBanRemove registers an unban handler
func (eh *EventHandler) OnGuildBanRemove(handler func(*discordgo.Session, *discordgo.GuildBanRemove)) {
	eh.Register("GuildBanRemove", handler)
}
