// Package commands wires every command category into the Discord client.
package commands

import (
	"github.com/PancyStudios/PancyMusicGo/internal/commands/dev"
	"github.com/PancyStudios/PancyMusicGo/internal/commands/music"
	"github.com/PancyStudios/PancyMusicGo/internal/commands/perms"
	"github.com/PancyStudios/PancyMusicGo/internal/commands/utils"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, player *music.Player) {
	// /play, /skip, /queue...
	music.Register(client, player)

	// /utils ping, /utils status, /utils stats, /utils help
	utils.RegisterUtilsCommands(client, player.Registry())

	// /perms set, /perms get, /perms list, /perms djonly, /perms defaultvolume
	perms.RegisterPermsCommands(client)

	// /dev eval, /dev sessions (dev guild only)
	dev.Register(client, player)
}
