package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

type subscriber struct {
	guildID string
	events  chan modlog.Record
}

// Hub fans modlog records out to websocket subscribers of each guild
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 10,
			WriteBufferSize: 1 << 12,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe returns a channel of the guild's records and a func that ends
// the subscription
func (h *Hub) Subscribe(guildID string) (<-chan modlog.Record, func()) {
	sub := &subscriber{guildID: guildID, events: make(chan modlog.Record, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.events, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of open subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish hands rec to every subscriber of its guild. Subscribers whose
// buffer is full miss the record.
func (h *Hub) Publish(_ context.Context, rec modlog.Record) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.guildID != rec.GuildID {
			continue
		}
		select {
		case sub.events <- rec:
		default:
			logger.Debug("Suscriptor lento, evento descartado para "+rec.GuildID, "WebSocket")
		}
	}
	return nil
}

// ServeEvents upgrades the request and streams the guild's records as JSON
// text frames until the client goes away
func (h *Hub) ServeEvents(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("No se pudo abrir el websocket: "+err.Error(), "WebSocket")
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(c.Param("guildId"))
	defer cancel()

	// The read loop only notices the client closing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case rec := <-events:
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

var _ modlog.EventSink = (*Hub)(nil)
