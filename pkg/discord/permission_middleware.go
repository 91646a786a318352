package discord

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Lookups used by the middleware; replaced in tests.
var (
	storedLevel   = database.GetPermLevel
	guildSettings = database.GetGuildSettings
	databaseReady = func() bool {
		db := database.Get()
		return db != nil && db.Connected()
	}
)

// effectiveLevel combines the stored tier with the member's Discord
// permissions. Guild owners and administrators are always Admin.
func effectiveLevel(stored models.PermLevel, permissions int64, owner bool) models.PermLevel {
	if owner || permissions&discordgo.PermissionAdministrator != 0 {
		return models.PermAdmin
	}
	return stored
}

// requiredLevel returns the tier cmd needs in a guild with the given settings.
func requiredLevel(cmd *Command, settings models.GuildMusicSettings) models.PermLevel {
	required := cmd.Tier
	if cmd.DJGated && settings.DJOnly && required < models.PermDJ {
		required = models.PermDJ
	}
	return required
}

// MemberLevel resolves the music tier of a member. A failed lookup counts
// as no tier.
func MemberLevel(s *discordgo.Session, guildID string, member *discordgo.Member) models.PermLevel {
	if member == nil || member.User == nil {
		return models.PermNone
	}

	stored, err := storedLevel(guildID, member.User.ID)
	if err != nil {
		logger.Debug(fmt.Sprintf("No se pudo leer el rango de %s: %v", member.User.ID, err), "PermissionMiddleware")
		stored = models.PermNone
	}

	owner := false
	if s != nil && s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			owner = g.OwnerID == member.User.ID
		}
	}
	return effectiveLevel(stored, member.Permissions, owner)
}

func denyEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// PermissionMiddleware checks the caller's tier against cmd and stores it in
// ctx.Level. It replies to the user and returns an error when access is
// denied.
func (c *ExtendedClient) PermissionMiddleware(ctx *CommandContext, cmd *Command) error {
	guildID := ctx.Interaction.GuildID
	if guildID == "" {
		ctx.ReplyEphemeral("❌ Este comando solo funciona dentro de un servidor.")
		return fmt.Errorf("command used outside a guild")
	}

	ctx.Level = MemberLevel(ctx.Session, guildID, ctx.Member())

	if ctx.Level == models.PermBlacklisted {
		ctx.ReplyEphemeralEmbed(denyEmbed(
			"🚫 Acceso Denegado",
			"Un administrador de este servidor te bloqueó el uso de los comandos de música.",
		))
		logger.Warn(fmt.Sprintf("Usuario bloqueado intentó usar /%s: %s", cmd.Name, ctx.User().ID), "PermissionMiddleware")
		return fmt.Errorf("user is blacklisted")
	}

	required := requiredLevel(cmd, guildSettings(guildID))
	if !ctx.Level.AtLeast(required) {
		ctx.ReplyEphemeralEmbed(denyEmbed(
			"🔒 Rango insuficiente",
			fmt.Sprintf("Necesitas el rango **%s** para usar este comando.", required),
		))
		return fmt.Errorf("user tier %s below %s", ctx.Level, required)
	}

	if cmd.RequiresDB && !databaseReady() {
		ctx.ReplyEphemeral("❌ La base de datos no está disponible en este momento, inténtalo más tarde.")
		return fmt.Errorf("database offline")
	}

	if cmd.InVoiceChannel && ctx.VoiceChannelID() == "" {
		ctx.ReplyEphemeral("❌ Debes estar en un canal de voz.")
		return fmt.Errorf("user not in a voice channel")
	}

	return nil
}
