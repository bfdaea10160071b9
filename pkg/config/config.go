// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	DevGuildID string
	DevUserIDs []string

	// Storage
	StorageBackend string
	MongoDBURL     string
	DBName         string
	CacheSize      int

	// MQTT
	MQTTHost        string
	MQTTPort        string
	MQTTUser        string
	MQTTPassword    string
	MQTTTopicPrefix string

	// Web Server
	Port            string
	WebAllowedHosts string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string

	// Scheduler
	SchedulerInterval  time.Duration
	SchedulerLookahead time.Duration

	// Audit log correlation
	AuditTimeout    time.Duration
	AuditEventDelay time.Duration
	AuditBaseSleep  time.Duration
	ExemptBotIDs    []string

	// Guild settings
	ConfigRefreshInterval time.Duration
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	_ = godotenv.Load()

	cfg = &Config{
		BotToken:   getEnv("botToken", ""),
		DevGuildID: getEnv("devGuildId", ""),
		DevUserIDs: getEnvList("devUserIds"),

		StorageBackend: getEnv("storageBackend", "mongo"),
		MongoDBURL:     getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:         getEnv("dbName", "PancyModlog"),
		CacheSize:      getEnvInt("cacheSize", 5000),

		MQTTHost:        getEnv("MQTT_Host", "localhost"),
		MQTTPort:        getEnv("MQTT_Port", "1883"),
		MQTTUser:        getEnv("MQTT_User", ""),
		MQTTPassword:    getEnv("MQTT_Password", ""),
		MQTTTopicPrefix: getEnv("mqttTopicPrefix", "modlog"),

		Port:            getEnv("PORT", "3000"),
		WebAllowedHosts: getEnv("webAllowedHosts", `^(.+\.)?miau\.media`),

		Environment: getEnv("enviroment", "dev"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),

		SchedulerInterval:  getEnvDuration("schedulerInterval", 10*time.Second),
		SchedulerLookahead: getEnvDuration("schedulerLookahead", 30*time.Second),

		AuditTimeout:    getEnvDuration("auditTimeout", 30*time.Second),
		AuditEventDelay: getEnvDuration("auditEventDelay", 2*time.Second),
		AuditBaseSleep:  getEnvDuration("auditBaseSleep", 1500*time.Millisecond),
		ExemptBotIDs:    getEnvList("exemptBotIds"),

		ConfigRefreshInterval: getEnvDuration("configRefreshInterval", 5*time.Minute),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer variable, falling back on parse errors
func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

// getEnvDuration parses a Go duration string such as "10s" or "1m30s"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// IsDev reports whether userID may run developer commands
func (c *Config) IsDev(userID string) bool {
	for _, id := range c.DevUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// MQTTBroker returns the broker URL built from host and port
func (c *Config) MQTTBroker() string {
	return "tcp://" + c.MQTTHost + ":" + c.MQTTPort
}
