// Package main is the entry point for the PancyMusic Go application.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/PancyStudios/PancyMusicGo/internal/commands"
	"github.com/PancyStudios/PancyMusicGo/internal/commands/music"
	"github.com/PancyStudios/PancyMusicGo/internal/events"
	"github.com/PancyStudios/PancyMusicGo/internal/remote"
	"github.com/PancyStudios/PancyMusicGo/pkg/config"
	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/lavalink"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/mqtt"
	"github.com/PancyStudios/PancyMusicGo/pkg/notify"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/PancyStudios/PancyMusicGo/pkg/resolver"
	"github.com/PancyStudios/PancyMusicGo/pkg/web"
)

// progressInterval is how often the dashboard receives playback positions
const progressInterval = 5 * time.Second

// app holds what has to be closed on shutdown. Fields stay nil until the
// component is created.
type app struct {
	discord  *discord.ExtendedClient
	lavalink *lavalink.Client
	registry *queue.Registry
	web      *web.Server
	cancel   context.CancelFunc
}

// shutdown stops event dispatch, then ends every voice session so no guild
// keeps a stale player.
func (a *app) shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.registry != nil {
		a.registry.Shutdown(ctx)
	}
	if a.web != nil {
		if err := a.web.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("Error cerrando el servidor web: %v", err), "Main")
		}
	}
	if a.lavalink != nil {
		a.lavalink.Disconnect()
	}
	if a.discord != nil {
		if err := a.discord.Stop(); err != nil {
			logger.Error(fmt.Sprintf("Error cerrando Discord: %v", err), "Main")
		}
	}
}

func lavalinkNodes(cfg *config.Config) []lavalink.NodeConfig {
	port, err := strconv.Atoi(cfg.LinkPort)
	if err != nil {
		logger.Warn(fmt.Sprintf("Puerto de Lavalink inválido %q, usando 2333", cfg.LinkPort), "Main")
		port = 2333
	}
	return []lavalink.NodeConfig{{
		Name:     "PancyMusic",
		Host:     cfg.LinkServer,
		Port:     port,
		Password: cfg.LinkPassword,
		Secure:   cfg.LinkSecure,
	}}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn(fmt.Sprintf("Nivel de log inválido %q, usando debug", cfg.LogLevel), "Main")
	}

	wd, _ := os.Getwd()
	logger.System(fmt.Sprintf("Iniciando PancyMusic Go %s (%s) en %s", config.Version, cfg.Environment, wd), "Main")

	ctx, cancel := context.WithCancel(context.Background())
	a := &app{cancel: cancel}
	errors.Init(cfg.ErrorWebhook, func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		a.shutdown(shutdownCtx)
	})

	// Without a database the bot still plays; the permission stores queue
	// their writes until the reconnect.
	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Base de datos no disponible: %v", err), "Main")
	}
	if db != nil {
		database.InitGlobalDataManagers(db)
		defer func() {
			if err := db.Disconnect(); err != nil {
				logger.Error(fmt.Sprintf("Error desconectando la base de datos: %v", err), "Main")
			}
		}()
	}

	mqttClientID := "pancymusic_canary"
	if cfg.IsProd() {
		mqttClientID = "pancymusic"
	}
	mqttClient := mqtt.Init(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
	defer mqttClient.Destroy()

	if a.discord, err = discord.Init(cfg.BotToken); err != nil {
		logger.Critical(fmt.Sprintf("Error creando el cliente de Discord: %v", err), "Main")
		os.Exit(1)
	}

	// Lavalink hooks the voice events, so it is created before the gateway opens
	a.lavalink = lavalink.Init(a.discord.Session, lavalinkNodes(cfg))

	trackResolver := resolver.New(a.lavalink, resolver.Options{
		SearchPrefix:        cfg.SearchPrefix,
		SpotifyClientID:     cfg.SpotifyClientID,
		SpotifyClientSecret: cfg.SpotifyClientSecret,
		PlaylistLimit:       cfg.PlaylistLimit,
	})

	mqttNotifier := notify.NewMQTTNotifier(mqttClient)
	a.registry = queue.NewRegistry(a.lavalink, trackResolver, notify.Multi{
		notify.NewAnnouncer(a.discord.Session),
		mqttNotifier,
	}, queue.Options{
		IdleInterval:  cfg.IdleInterval,
		IdleThreshold: cfg.IdleThreshold,
	})
	mqttNotifier.Attach(a.registry)

	go a.registry.Listen(ctx, a.lavalink.Events())
	go mqttNotifier.RunProgress(ctx, progressInterval)

	player := music.NewPlayer(a.registry, cfg.DefaultVolume)
	remote.Register(mqttClient, player)
	commands.RegisterAll(a.discord, player)
	events.RegisterAll(a.discord, a.registry, cfg)

	if err := a.discord.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error iniciando el cliente de Discord: %v", err), "Main")
		os.Exit(1)
	}
	if err := a.lavalink.Connect(); err != nil {
		logger.Error(fmt.Sprintf("Error conectando a Lavalink: %v", err), "Main")
	}

	api := &web.API{Sessions: a.registry, Bot: a.discord}
	if db != nil {
		api.Database = db
	}
	a.web = web.Init(cfg.LogsWebServerHook, cfg.WebAllowedHosts)
	web.SetupAPIRoutes(a.web, api)
	a.web.StartAsync(cfg.Port)

	logger.Success("PancyMusic Go iniciado correctamente!", "Main")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	logger.System("Apagando PancyMusic Go...", "Main")
	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	a.shutdown(shutdownCtx)
}
