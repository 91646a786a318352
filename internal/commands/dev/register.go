// Package dev holds developer-only commands, registered in the dev guild.
package dev

import (
	"github.com/PancyStudios/PancyMusicGo/internal/commands/music"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
)

// player is what /dev eval and /dev sessions inspect
var player *music.Player

// Register registers all dev commands as /dev subcommands (only in dev guild)
func Register(client *discord.ExtendedClient, p *music.Player) {
	player = p

	devGroup := client.CommandHandler.BuildCommandGroup(
		"dev",
		"Comandos de desarrollo",
		CreateEvalCommand(),
		CreateSessionsCommand(),
	)

	client.CommandHandler.AddDevCommand(devGroup)
}
