package perms

import (
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

var minVolume = 0.0

// createVolumeCommand creates the /perms defaultvolume subcommand
func createVolumeCommand() *discord.Command {
	return discord.NewCommand(
		"defaultvolume",
		"Volumen con el que empiezan las sesiones nuevas",
		"perms",
		volumeHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "nivel",
			Description: "Volumen (0-100), 0 usa el predeterminado del bot",
			Required:    true,
			MinValue:    &minVolume,
			MaxValue:    100,
		},
	)
}

// volumeHandler handles the /perms defaultvolume command
func volumeHandler(ctx *discord.CommandContext) error {
	level := int(ctx.GetIntOption("nivel"))
	if err := database.SetDefaultVolume(ctx.Interaction.GuildID, level); err != nil {
		ctx.ReplyEphemeral("❌ No se pudo guardar el ajuste. Inténtalo más tarde.")
		return err
	}
	if level == 0 {
		return ctx.Reply("🔊 Las sesiones nuevas usarán el volumen predeterminado del bot.")
	}
	return ctx.Reply(fmt.Sprintf("🔊 Las sesiones nuevas empezarán al %d%%.", level))
}
