// Package config loads the bot settings from the environment and an
// optional .env file.
package config

import (
	"os"
	"slices"
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

	// MongoDB
	MongoDBURL string
	DBName     string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port string

	// Environment
	Environment string
	LogLevel    string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string
	GuildsWebhook     string

	// Lavalink
	LinkServer   string
	LinkPort     string
	LinkPassword string
	LinkSecure   bool

	// Music
	SearchPrefix        string
	SpotifyClientID     string
	SpotifyClientSecret string
	IdleInterval        time.Duration
	IdleThreshold       int
	DefaultVolume       int
	LeaveWhenAlone      bool
	PlaylistLimit       int

	// Web
	WebAllowedHosts string
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

// resetForTesting forgets the loaded configuration
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// A missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg = &Config{
		// Discord
		BotToken:   getEnv("botToken", ""),
		DevGuildID: getEnv("devGuildId", ""),
		DevUserIDs: getEnvList("devUsers"),

		// MongoDB
		MongoDBURL: getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:     getEnv("dbName", "PancyMusic"),

		// MQTT
		MQTTHost:     getEnv("MQTT_Host", "localhost"),
		MQTTPort:     getEnv("MQTT_Port", "1883"),
		MQTTUser:     getEnv("MQTT_User", ""),
		MQTTPassword: getEnv("MQTT_Password", ""),

		// Web Server
		Port: getEnv("PORT", "3000"),

		// Environment
		Environment: getEnv("enviroment", "dev"),
		LogLevel:    getEnv("logLevel", "debug"),

		// Webhooks
		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),
		GuildsWebhook:     getEnv("guildsWebhook", ""),

		// Lavalink
		LinkServer:   getEnv("linkserver", "localhost"),
		LinkPort:     getEnv("linkport", "2333"),
		LinkPassword: getEnv("linkpassword", ""),
		LinkSecure:   getEnvBool("linksecure", false),

		// Music
		SearchPrefix:        getEnv("searchPrefix", "ytsearch"),
		SpotifyClientID:     getEnv("spotifyClientId", ""),
		SpotifyClientSecret: getEnv("spotifyClientSecret", ""),
		IdleInterval:        getEnvDuration("idleInterval", 60*time.Second),
		IdleThreshold:       getEnvInt("idleThreshold", 5),
		DefaultVolume:       clampPercent(getEnvInt("defaultVolume", 100)),
		LeaveWhenAlone:      getEnvBool("leaveWhenAlone", false),
		PlaylistLimit:       getEnvInt("playlistLimit", 100),

		// Web
		WebAllowedHosts: getEnv("webAllowedHosts", ".*"),
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

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseEnv reads key with parse, falling back when it is unset or invalid
func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	v, err := parse(value)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// getEnvBool accepts the values understood by strconv.ParseBool
func getEnvBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, strconv.ParseBool)
}

// getEnvDuration parses a positive Go duration such as "90s" or "2m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, func(v string) (time.Duration, error) {
		d, err := time.ParseDuration(v)
		if err == nil && d <= 0 {
			err = strconv.ErrRange
		}
		return d, err
	})
}

func clampPercent(n int) int {
	return min(max(n, 0), 100)
}

// LavalinkAddress returns host:port of the Lavalink node.
func (c *Config) LavalinkAddress() string {
	return c.LinkServer + ":" + c.LinkPort
}

// IsDev reports whether userID may use the /dev commands
func (c *Config) IsDev(userID string) bool {
	return slices.Contains(c.DevUserIDs, userID)
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
