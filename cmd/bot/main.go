// Package main is the entry point for PancyModlog.
// It wires storage, the moderation engine and the outer surfaces, then starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands"
	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/internal/events"
	"github.com/PancyStudios/PancyModlog/pkg/audit"
	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/database"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/mqtt"
	"github.com/PancyStudios/PancyModlog/pkg/scheduler"
	"github.com/PancyStudios/PancyModlog/pkg/web"
	"github.com/bwmarrin/discordgo"
)

// botStatus answers the web API's status route
type botStatus struct {
	client  *discord.ExtendedClient
	storage *database.Storage
}

func (s botStatus) BotReady() bool                  { return s.client.IsReady() }
func (s botStatus) GuildCount() int                 { return s.client.GuildCount() }
func (s botStatus) DatabaseStatus() (string, bool) { return s.storage.Status() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando PancyModlog %s (%s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var discordClient *discord.ExtendedClient
	errors.Init(cfg.ErrorWebhook, func() {
		cancel()
		if discordClient != nil {
			if err := discordClient.Stop(); err != nil {
				logger.Error("Error cerrando la sesión de Discord: "+err.Error(), "Main")
			}
		}
	})

	storage, err := database.Open(cfg)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error opening storage: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("Error cerrando la base de datos: "+err.Error(), "Main")
		}
	}()
	storage.Configs.StartAutoRefresh(cfg.ConfigRefreshInterval)

	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}
	platform := discordClient.Platform

	ml := modlog.New(storage.Store, platform, storage.Configs, modlog.Options{})

	correlator := audit.NewCorrelator(platform, audit.Options{
		Timeout:   cfg.AuditTimeout,
		BaseSleep: cfg.AuditBaseSleep,
	})
	errors.Go(func() { correlator.Run(ctx) })

	service := moderation.NewService(platform, ml, storage.Configs, correlator, moderation.Options{
		ExemptBotIDs: cfg.ExemptBotIDs,
		EventDelay:   cfg.AuditEventDelay,
	})

	expiry := scheduler.New(storage.Store, platform, scheduler.Options{
		Interval:  cfg.SchedulerInterval,
		Lookahead: cfg.SchedulerLookahead,
	})
	expiry.Handle(models.TypeMute, service.AutoUnmute)
	expiry.Handle(models.TypeBan, service.AutoUnban)

	// The scheduler waits for the guild cache so lift tasks can tell an
	// unavailable guild from one the bot left
	var startScheduler sync.Once
	discordClient.OnReady(func(*discordgo.User) {
		startScheduler.Do(func() { expiry.Start(ctx) })
	})

	mqttClientID := "pancymodlog"
	if !cfg.IsProd() {
		mqttClientID = "pancymodlog_canary"
	}
	mqttClient := mqtt.Init(mqtt.Options{
		Broker:   cfg.MQTTBroker(),
		Username: cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: mqttClientID,
		Prefix:   cfg.MQTTTopicPrefix,
	})
	defer mqttClient.Destroy()
	ml.AddSink(mqtt.NewEventSink(mqttClient))
	if err := mqtt.RegisterHandlers(mqttClient, storage.Store); err != nil {
		logger.Warn("No se registraron los manejadores MQTT: "+err.Error(), "Main")
	}

	webServer, err := web.Init(web.Options{
		WebhookURL:   cfg.LogsWebServerHook,
		AllowedHosts: cfg.WebAllowedHosts,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating web server: %v", err), "Main")
		os.Exit(1)
	}
	hub := web.NewHub()
	ml.AddSink(hub)
	web.SetupAPIRoutes(webServer, &web.API{
		Store:  storage.Store,
		Hub:    hub,
		Status: botStatus{client: discordClient, storage: storage},
	})
	webServer.StartAsync(cfg.Port)

	events.RegisterAll(discordClient, events.NewHandlers(service, ml))

	deps := &shared.Deps{
		Moderation: service,
		Modlog:     ml,
		Store:      storage.Store,
		Configs:    storage.Configs,
		Scheduler:  expiry,
		Correlator: correlator,
	}
	if storage.DB != nil {
		deps.DatabaseStatus = storage.Status
	}
	commands.RegisterAll(discordClient, deps)

	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}

	logger.Success("PancyModlog iniciado correctamente!", "Main")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case <-sc:
	case <-ctx.Done():
	}

	logger.System("Apagando PancyModlog...", "Main")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Error apagando el servidor web: "+err.Error(), "Main")
	}
	if err := discordClient.Stop(); err != nil {
		logger.Warn("Error cerrando la sesión de Discord: "+err.Error(), "Main")
	}
	// Lift tasks already running finish their platform calls before storage closes
	expiry.Wait()
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
