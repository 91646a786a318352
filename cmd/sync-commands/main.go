// Package main syncs the bot's slash commands with Discord without starting
// the bot.
//
// Usage:
//
//	go run ./cmd/sync-commands [options]
//
// Options:
//
//	-list           Compare the commands in code with the ones Discord has
//	-clean          Remove every command without registering new ones
//	-guild <id>     Target a guild (dev commands) instead of the global scope
//	-sync           Replace Discord's commands with the ones in code (default)
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/PancyStudios/PancyMusicGo/internal/commands"
	"github.com/PancyStudios/PancyMusicGo/internal/commands/music"
	"github.com/PancyStudios/PancyMusicGo/pkg/config"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/bwmarrin/discordgo"
)

const (
	prefix       = "SyncCommands"
	readyTimeout = 15 * time.Second
)

func main() {
	listCmd := flag.Bool("list", false, "Compare local and registered commands")
	cleanCmd := flag.Bool("clean", false, "Remove all commands without registering new ones")
	guildID := flag.String("guild", "", "Target a specific guild (leave empty for global)")
	flag.Bool("sync", true, "Sync commands (remove stale, register current)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System("Iniciando utilidad de sincronización de comandos...", prefix)

	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el cliente de Discord: %v", err), prefix)
		os.Exit(1)
	}

	// Only the definitions are needed; nothing is played
	registry := queue.NewRegistry(nil, nil, nil, queue.Options{})
	commands.RegisterAll(client, music.NewPlayer(registry, cfg.DefaultVolume))
	if err := client.CommandHandler.LoadCommands(); err != nil {
		logger.Critical(err.Error(), prefix)
		os.Exit(1)
	}

	// The application id comes from Ready
	ready := make(chan struct{})
	client.Session.AddHandlerOnce(func(*discordgo.Session, *discordgo.Ready) { close(ready) })
	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Error conectando a Discord: %v", err), prefix)
		os.Exit(1)
	}
	select {
	case <-ready:
	case <-time.After(readyTimeout):
		logger.Critical("Discord no envió Ready a tiempo", prefix)
		client.Session.Close()
		os.Exit(1)
	}
	logger.Success("Conectado a Discord", prefix)

	switch {
	case *listCmd:
		err = listCommands(client, *guildID)
	case *cleanCmd:
		err = cleanCommands(client, *guildID)
	default:
		err = syncCommands(client, *guildID)
	}
	client.Session.Close()

	if err != nil {
		logger.Error(err.Error(), prefix)
		os.Exit(1)
	}
	logger.Success("Operación completada exitosamente", prefix)
}

// commandState is how a command compares between code and Discord
type commandState string

const (
	stateSynced  commandState = "sincronizado"
	stateStale   commandState = "obsoleto"
	statePending commandState = "pendiente"
)

type commandRow struct {
	Name  string
	ID    string
	State commandState
}

// diffCommands pairs local definitions with registered commands by name.
// Rows are sorted by name.
func diffCommands(local, remote []*discordgo.ApplicationCommand) []commandRow {
	defined := make(map[string]bool, len(local))
	for _, cmd := range local {
		defined[cmd.Name] = true
	}

	var rows []commandRow
	registered := make(map[string]bool, len(remote))
	for _, cmd := range remote {
		registered[cmd.Name] = true
		state := stateStale
		if defined[cmd.Name] {
			state = stateSynced
		}
		rows = append(rows, commandRow{Name: cmd.Name, ID: cmd.ID, State: state})
	}
	for _, cmd := range local {
		if !registered[cmd.Name] {
			rows = append(rows, commandRow{Name: cmd.Name, State: statePending})
		}
	}

	slices.SortFunc(rows, func(a, b commandRow) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return rows
}

func listCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("📋 Comparando comandos...", prefix)

	var (
		remote []*discordgo.ApplicationCommand
		err    error
	)
	if guildID != "" {
		logger.Info(fmt.Sprintf("Servidor: %s", guildID), prefix)
		remote, err = client.CommandHandler.ListGuildCommands(guildID)
	} else {
		remote, err = client.CommandHandler.ListGlobalCommands()
	}
	if err != nil {
		return fmt.Errorf("error obteniendo comandos: %w", err)
	}

	rows := diffCommands(client.CommandHandler.Definitions(guildID != ""), remote)
	if len(rows) == 0 {
		logger.Info("No hay comandos definidos ni registrados", prefix)
		return nil
	}
	for i, row := range rows {
		id := row.ID
		if id == "" {
			id = "-"
		}
		logger.Info(fmt.Sprintf("  %d. /%s [%s] (ID: %s)", i+1, row.Name, row.State, id), prefix)
	}
	logger.Info(fmt.Sprintf("Manejadores locales: %v", client.Commands.Names()), prefix)
	return nil
}

func cleanCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🧹 Eliminando todos los comandos...", prefix)

	var err error
	if guildID != "" {
		err = client.CommandHandler.UnregisterGuildCommands(guildID)
	} else {
		err = client.CommandHandler.UnregisterCommands()
	}
	if err != nil {
		return fmt.Errorf("error eliminando comandos: %w", err)
	}
	return nil
}

// syncCommands replaces what Discord has. A guild target receives the dev
// commands.
func syncCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🔄 Sincronizando comandos...", prefix)

	var err error
	if guildID != "" {
		err = client.CommandHandler.SyncGuildCommands(guildID)
	} else {
		err = client.CommandHandler.SyncCommands()
	}
	if err != nil {
		return fmt.Errorf("error sincronizando comandos: %w", err)
	}
	return nil
}
