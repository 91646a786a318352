package perms

import (
	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createDJOnlyCommand creates the /perms djonly subcommand
func createDJOnlyCommand() *discord.Command {
	return discord.NewCommand(
		"djonly",
		"Restringe /play a los DJs",
		"perms",
		djOnlyHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "activo",
			Description: "Activar o desactivar",
			Required:    true,
		},
	)
}

// djOnlyHandler handles the /perms djonly command
func djOnlyHandler(ctx *discord.CommandContext) error {
	enabled := ctx.GetBoolOption("activo")
	if err := database.SetDJOnly(ctx.Interaction.GuildID, enabled); err != nil {
		ctx.ReplyEphemeral("❌ No se pudo guardar el ajuste. Inténtalo más tarde.")
		return err
	}
	if enabled {
		return ctx.Reply("🎧 Ahora solo los DJs pueden usar `/play`.")
	}
	return ctx.Reply("🎶 Todos pueden usar `/play` de nuevo.")
}
