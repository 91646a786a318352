package dev

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyMusicGo/pkg/config"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/bwmarrin/discordgo"
)

// CreateSessionsCommand crea el comando /dev sessions
func CreateSessionsCommand() *discord.Command {
	return discord.NewCommand(
		"sessions",
		"Lista las sesiones de voz activas",
		"dev",
		sessionsHandler,
	).AsDev()
}

// sessionLine summarizes one guild's queue
func sessionLine(q *queue.GuildQueue) string {
	info := q.Info()
	line := fmt.Sprintf("`%s` <#%s> · %d en cola", info.GuildID, info.VoiceChannelID, q.Len())
	if np, err := q.NowPlaying(); err == nil {
		line += " · " + np.Metadata.Title
		if np.Paused {
			line += " (pausado)"
		}
	}
	return line
}

func sessionsEmbed(reg *queue.Registry) *discordgo.MessageEmbed {
	var lines []string
	for _, guildID := range reg.Guilds() {
		if q := reg.Get(guildID); q != nil {
			lines = append(lines, sessionLine(q))
		}
	}

	description := "No hay sesiones activas."
	if len(lines) > 0 {
		description = strings.Join(lines, "\n")
	}
	if len(description) > 4000 {
		description = description[:4000] + "\n..."
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🎵 Sesiones de voz (%d)", len(lines)),
		Description: description,
		Color:       0x5865F2,
	}
}

func sessionsHandler(ctx *discord.CommandContext) error {
	if !config.Get().IsDev(ctx.User().ID) {
		return ctx.ReplyEphemeral("❌ **Acceso Denegado:** Este comando es solo para desarrolladores.")
	}
	if player == nil {
		return ctx.ReplyEphemeral("❌ El reproductor no está inicializado.")
	}
	return ctx.ReplyEphemeralEmbed(sessionsEmbed(player.Registry()))
}
