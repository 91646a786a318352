package perms

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// maxListed caps the rows shown by /perms list
const maxListed = 25

// createListCommand creates the /perms list subcommand
func createListCommand() *discord.Command {
	return discord.NewCommand(
		"list",
		"Lista los rangos de música del servidor",
		"perms",
		listHandler,
	)
}

func listEmbed(perms []*models.MusicPermission, settings models.GuildMusicSettings) *discordgo.MessageEmbed {
	var sb strings.Builder
	if len(perms) == 0 {
		sb.WriteString("No hay rangos asignados. Los administradores del servidor siempre son Admin.")
	}
	for i, p := range perms {
		if i == maxListed {
			sb.WriteString(fmt.Sprintf("\n... y %d más", len(perms)-maxListed))
			break
		}
		sb.WriteString(fmt.Sprintf("%s · <@%s>\n", tierName(p.Level), p.UserID))
	}

	djOnly := "Desactivado"
	if settings.DJOnly {
		djOnly = "Activado"
	}
	volume := "Predeterminado"
	if settings.DefaultVolume > 0 {
		volume = fmt.Sprintf("%d%%", settings.DefaultVolume)
	}

	return &discordgo.MessageEmbed{
		Title:       "🎚️ Rangos de música",
		Description: sb.String(),
		Color:       0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Solo DJ", Value: djOnly, Inline: true},
			{Name: "Volumen inicial", Value: volume, Inline: true},
		},
	}
}

// listHandler handles the /perms list command
func listHandler(ctx *discord.CommandContext) error {
	guildID := ctx.Interaction.GuildID
	perms, err := database.ListPermissions(guildID)
	if err != nil {
		ctx.ReplyEphemeral("❌ No se pudieron leer los rangos. Inténtalo más tarde.")
		return err
	}
	return ctx.ReplyEphemeralEmbed(listEmbed(perms, database.GetGuildSettings(guildID)))
}
