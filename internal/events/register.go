// Package events connects gateway events to the moderation watcher.
package events

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/discord"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

// Watcher reacts to membership changes made inside or outside the bot
type Watcher interface {
	OnMemberBan(ctx context.Context, guildID string, user modlog.User) error
	OnMemberUnban(ctx context.Context, guildID string, user modlog.User) error
	OnMemberRemove(ctx context.Context, guildID string, member *moderation.Member) error
	OnMemberUpdate(ctx context.Context, guildID string, user modlog.User, before, after []string) error
	OnMemberJoin(ctx context.Context, guildID string, user modlog.User)
	SetBotID(id string)
}

// handlerTimeout bounds one watcher call, audit-log wait included
const handlerTimeout = 2 * time.Minute

// Handlers holds the gateway event callbacks
type Handlers struct {
	watcher Watcher
	modlog  *modlog.Modlog
	// run starts a handler body; gateway callbacks must not block
	run func(fn func())
}

// NewHandlers creates the callbacks for watcher. ml may be nil.
func NewHandlers(watcher Watcher, ml *modlog.Modlog) *Handlers {
	return &Handlers{watcher: watcher, modlog: ml, run: moderrors.Go}
}

func (h *Handlers) spawn(name, guildID string, fn func(ctx context.Context) error) {
	h.run(func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.WithFields(logger.Fields{"guild": guildID, "event": name}, "Events").
				Error("Error procesando evento: " + err.Error())
		}
	})
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, h *Handlers) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	RegisterReadyEvent(client, h)
	RegisterGuildEvents(client)
	RegisterMemberEvents(client, h)
	RegisterShardEvents(client)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
