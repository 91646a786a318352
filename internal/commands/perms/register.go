// Package perms provides the /perms commands that manage music tiers and
// guild music settings.
package perms

import (
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// RegisterPermsCommands registers all permission commands as /perms subcommands
func RegisterPermsCommands(client *discord.ExtendedClient) {
	subcommands := []*discord.Command{
		createSetCommand(),
		createGetCommand(),
		createListCommand(),
		createDJOnlyCommand(),
		createVolumeCommand(),
	}
	for _, cmd := range subcommands {
		cmd.WithTier(models.PermAdmin).RequiresDatabase()
	}

	permsGroup := client.CommandHandler.BuildCommandGroup(
		"perms",
		"Rangos de música y ajustes del servidor",
		subcommands...,
	)

	client.CommandHandler.AddGlobalCommand(permsGroup)
}

// tierChoices are the tiers an admin may assign
var tierChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Bloqueado", Value: models.PermBlacklisted.String()},
	{Name: "Ninguno", Value: models.PermNone.String()},
	{Name: "Usuario", Value: models.PermUser.String()},
	{Name: "DJ", Value: models.PermDJ.String()},
	{Name: "Admin", Value: models.PermAdmin.String()},
}

// tierName is the Spanish label of a tier
func tierName(level models.PermLevel) string {
	switch level {
	case models.PermBlacklisted:
		return "🚫 Bloqueado"
	case models.PermUser:
		return "👤 Usuario"
	case models.PermDJ:
		return "🎧 DJ"
	case models.PermAdmin:
		return "🛡️ Admin"
	default:
		return "Ninguno"
	}
}
