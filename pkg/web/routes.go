package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/PancyStudios/PancyModlog/pkg/database"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reader is the read side of the infraction store
type Reader interface {
	GetInfraction(ctx context.Context, guildID string, id int64) (*models.Infraction, error)
	GetHistory(ctx context.Context, guildID, userID string) (*models.History, error)
	Search(ctx context.Context, guildID string, q database.SearchQuery) ([]*models.Infraction, error)
	Count(ctx context.Context, guildID string, q database.SearchQuery) (int64, error)
}

// StatusSource reports the health of the bot's dependencies
type StatusSource interface {
	BotReady() bool
	GuildCount() int
	DatabaseStatus() (string, bool)
}

// API holds what the routes read from
type API struct {
	Store  Reader
	Hub    *Hub
	Status StatusSource
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, api *API) {
	s.GET("/metrics", gin.WrapH(promhttp.Handler()))

	group := s.Group("/api")
	{
		group.GET("/status", api.statusHandler)
		group.GET("/health", healthHandler)

		guild := group.Group("/guilds/:guildId")
		guild.GET("/infractions", api.searchHandler)
		guild.GET("/infractions/:id", api.infractionHandler)
		guild.GET("/users/:userId/history", api.historyHandler)
		if api.Hub != nil {
			guild.GET("/events", api.Hub.ServeEvents)
		}
	}
}

// statusHandler returns the bot and database status
func (a *API) statusHandler(c *gin.Context) {
	if a.Status == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	dbStatus, dbOnline := a.Status.DatabaseStatus()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": a.Status.BotReady(),
			"guilds":   a.Status.GuildCount(),
		},
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyModlog is running",
	})
}

// writeError maps store errors onto status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, moderrors.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": http.StatusText(status), "message": err.Error(), "status": status})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": message, "status": http.StatusBadRequest})
}

func (a *API) infractionHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "El id de la infracción no es válido.")
		return
	}
	inf, err := a.Store.GetInfraction(c.Request.Context(), c.Param("guildId"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inf)
}

func (a *API) historyHandler(c *gin.Context) {
	h, err := a.Store.GetHistory(c.Request.Context(), c.Param("guildId"), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

// parseSearch reads ?user=&mod=&type=&active=&q=&or=&not= into a query
func parseSearch(c *gin.Context) (database.SearchQuery, error) {
	q := database.SearchQuery{
		Keywords: strings.Fields(c.Query("q")),
		UserID:   c.Query("user"),
		ModID:    c.Query("mod"),
	}
	if raw := c.Query("type"); raw != "" {
		t, ok := models.ParseInfractionType(strings.ToLower(raw))
		if !ok {
			return q, errors.New("tipo de infracción desconocido: " + raw)
		}
		q.Type = t
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return q, errors.New("active debe ser true o false")
		}
		q.Active = &active
	}
	q.Or = c.Query("or") == "true"
	q.Not = c.Query("not") == "true"
	return q, nil
}

func (a *API) searchHandler(c *gin.Context) {
	q, err := parseSearch(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	guildID := c.Param("guildId")

	if c.Query("count") == "true" {
		n, err := a.Store.Count(c.Request.Context(), guildID, q)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
		return
	}

	infs, err := a.Store.Search(c.Request.Context(), guildID, q)
	if err != nil {
		writeError(c, err)
		return
	}
	if infs == nil {
		infs = []*models.Infraction{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(infs), "infractions": infs})
}
