// Package events provides event handlers for guild (server) events
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/bwmarrin/discordgo"
)

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildCreate(onGuildCreate)
	client.EventHandler.OnGuildDelete(onGuildDelete)
}

// isNewGuild tells a real join apart from the GuildCreate sent for every
// guild on connect.
func isNewGuild(joinedAt, now time.Time) bool {
	return !joinedAt.Before(now.Add(-10 * time.Second))
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🎉",
		Description: "Hola, soy **PancyMusic**. Únete a un canal de voz y usa `/play` para empezar.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🎵 Música",
				Value:  "`/play`, `/queue`, `/skip`",
				Inline: true,
			},
			{
				Name:   "🎧 Rangos",
				Value:  "Los administradores asignan DJs con `/perms set`",
				Inline: true,
			},
			{
				Name:   "❓ Ayuda",
				Value:  "Usa `/utils help` para más información",
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "¡Disfruta de PancyMusic!",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// onGuildCreate is called when the bot joins a server
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !isNewGuild(g.JoinedAt, time.Now()) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Miembros: %d | Canales: %d", g.MemberCount, len(g.Channels)), "Guild")
	go logger.PostEmbed(guildsWebhook, "➕ Nuevo servidor", guildSummary(g.Guild, cachedGuilds(s)), 0x00ff00)

	if g.SystemChannelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed()); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// onGuildDelete is called when the bot is removed from a server. Outages
// also send GuildDelete, marked Unavailable, and keep everything.
func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("⚠️ Servidor %s no disponible", g.ID), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
	guildRemoved(g.ID)
	go logger.PostEmbed(guildsWebhook, "➖ Servidor eliminado", guildSummary(g.BeforeDelete, cachedGuilds(s)), 0xff0000)
}

func cachedGuilds(s *discordgo.Session) int {
	if s.State == nil {
		return 0
	}
	s.State.RLock()
	defer s.State.RUnlock()
	return len(s.State.Guilds)
}

// guildSummary describes a guild for the guilds webhook. g may be nil when
// the guild was not cached.
func guildSummary(g *discordgo.Guild, total int) string {
	if g == nil {
		return fmt.Sprintf("Servidor desconocido\nServidores totales: %d", total)
	}
	return fmt.Sprintf("**%s** (`%s`)\nMiembros: %d\nServidores totales: %d", g.Name, g.ID, g.MemberCount, total)
}

// guildRemoved ends the guild's session and drops its stored data
func guildRemoved(guildID string) {
	if registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		registry.Teardown(ctx, guildID, queue.CloseGuildRemoved)
	}
	if err := database.PurgeGuild(guildID); err != nil {
		logger.Warn(fmt.Sprintf("No se pudieron borrar los datos del servidor %s: %v", guildID, err), "Guild")
	}
}
