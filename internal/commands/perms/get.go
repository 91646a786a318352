package perms

import (
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// createGetCommand creates the /perms get subcommand
func createGetCommand() *discord.Command {
	return discord.NewCommand(
		"get",
		"Muestra el rango de música de un usuario",
		"perms",
		getHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario",
			Required:    true,
		},
	)
}

// levelMessage describes a member's stored and effective tier.
func levelMessage(userID string, stored, effective models.PermLevel) string {
	msg := fmt.Sprintf("🎚️ Rango de <@%s>: **%s**", userID, tierName(effective))
	if stored != effective {
		msg += fmt.Sprintf("\n(guardado: %s, por permisos de Discord es %s)", tierName(stored), tierName(effective))
	}
	return msg
}

// getHandler handles the /perms get command
func getHandler(ctx *discord.CommandContext) error {
	target := ctx.GetUserOption("usuario")
	if target == nil {
		return ctx.ReplyEphemeral("❌ Usuario no encontrado.")
	}

	guildID := ctx.Interaction.GuildID
	stored, err := database.GetPermLevel(guildID, target.ID)
	if err != nil {
		ctx.ReplyEphemeral("❌ No se pudo leer el rango. Inténtalo más tarde.")
		return err
	}

	effective := stored
	if member, err := ctx.Session.State.Member(guildID, target.ID); err == nil {
		effective = discord.MemberLevel(ctx.Session, guildID, memberWithPermissions(ctx, member))
	}
	return ctx.ReplyEphemeral(levelMessage(target.ID, stored, effective))
}

// memberWithPermissions fills in the member's computed guild permissions,
// which the state cache does not store.
func memberWithPermissions(ctx *discord.CommandContext, m *discordgo.Member) *discordgo.Member {
	perms, err := ctx.Session.State.UserChannelPermissions(m.User.ID, ctx.Interaction.ChannelID)
	if err != nil {
		return m
	}
	withPerms := *m
	withPerms.Permissions = perms
	return &withPerms
}
