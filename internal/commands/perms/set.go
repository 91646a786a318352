package perms

import (
	"errors"
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

var (
	errBotTarget  = errors.New("los bots no tienen rango de música")
	errSelfDemote = errors.New("no puedes quitarte tu propio rango de administrador")
)

// createSetCommand creates the /perms set subcommand
func createSetCommand() *discord.Command {
	return discord.NewCommand(
		"set",
		"Asigna el rango de música de un usuario",
		"perms",
		setHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "rango",
			Description: "Rango a asignar",
			Required:    true,
			Choices:     tierChoices,
		},
	)
}

// applyLevel validates and stores a tier change.
func applyLevel(guildID string, target *discordgo.User, level models.PermLevel, callerID string, callerLevel models.PermLevel) error {
	if target.Bot {
		return errBotTarget
	}
	if target.ID == callerID && callerLevel == models.PermAdmin && level < models.PermAdmin {
		stored, err := database.GetPermLevel(guildID, callerID)
		// only a stored Admin row can be lost; Discord administrators keep Admin anyway
		if err == nil && stored == models.PermAdmin {
			return errSelfDemote
		}
	}
	return database.SetPermLevel(guildID, target.ID, level, callerID)
}

// setHandler handles the /perms set command
func setHandler(ctx *discord.CommandContext) error {
	target := ctx.GetUserOption("usuario")
	if target == nil {
		return ctx.ReplyEphemeral("❌ Usuario no encontrado.")
	}
	level, err := models.ParsePermLevel(ctx.GetStringOption("rango"))
	if err != nil {
		return ctx.ReplyEphemeral("❌ " + err.Error())
	}

	guildID := ctx.Interaction.GuildID
	if err := applyLevel(guildID, target, level, ctx.User().ID, ctx.Level); err != nil {
		if errors.Is(err, errBotTarget) || errors.Is(err, errSelfDemote) {
			return ctx.ReplyEphemeral("❌ " + err.Error() + ".")
		}
		ctx.ReplyEphemeral("❌ No se pudo guardar el rango. Inténtalo más tarde.")
		return err
	}

	logger.Info(fmt.Sprintf("[%s] %s asignó el rango %s a %s", guildID, ctx.User().ID, level, target.ID), "Perms")
	return ctx.Reply(fmt.Sprintf("✅ <@%s> ahora tiene el rango **%s**.", target.ID, tierName(level)))
}
