package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/config"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/bwmarrin/discordgo"
)

// createStatsCommand creates the /utils stats subcommand
func createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Muestra estadísticas del bot",
		"utils",
		statsHandler,
	)
}

// botStats is what /utils stats reports
type botStats struct {
	Version    string
	GoVersion  string
	MemoryMB   float64
	Goroutines int
	Uptime     time.Duration
	Guilds     int
	Sessions   int
	Playing    int
	Queued     int
}

// musicStats counts live sessions, those with a current track, and the
// requests waiting across every queue.
func musicStats() (total, playing, queued int) {
	if sessions == nil {
		return 0, 0, 0
	}
	for _, guildID := range sessions.Guilds() {
		q := sessions.Get(guildID)
		if q == nil {
			continue
		}
		total++
		np, items := q.Snapshot()
		queued += len(items)
		if np != nil {
			playing++
			queued--
		}
	}
	return total, playing, queued
}

func collectStats(ctx *discord.CommandContext) botStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := botStats{
		Version:    config.Version,
		GoVersion:  strings.TrimPrefix(runtime.Version(), "go"),
		MemoryMB:   float64(m.Alloc) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(ctx.Client.StartTime),
		Guilds:     ctx.Client.GuildCount(),
	}
	st.Sessions, st.Playing, st.Queued = musicStats()
	return st
}

func statsEmbed(st botStats) *discordgo.MessageEmbed {
	field := func(name, value string) *discordgo.MessageEmbedField {
		return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
	}
	return &discordgo.MessageEmbed{
		Title: "📊 Estadísticas del Bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			field("🤖 Versión", fmt.Sprintf("%s (Go %s)", st.Version, st.GoVersion)),
			field("🖥 Uso de RAM", fmt.Sprintf("%.2f MB", st.MemoryMB)),
			field("⚙️ Goroutines", fmt.Sprintf("%d", st.Goroutines)),
			field("⏱ Uptime", formatDuration(st.Uptime)),
			field("🏠 Servidores", fmt.Sprintf("%d", st.Guilds)),
			field("🎵 Sesiones de voz", fmt.Sprintf("%d (%d reproduciendo)", st.Sessions, st.Playing)),
			field("📋 Canciones en cola", fmt.Sprintf("%d", st.Queued)),
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "💫 - Developed by PancyStudios",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// statsHandler handles the /utils stats command
func statsHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		ctx.ReplyEmbed(statsEmbed(collectStats(ctx)))
	}()
	return nil
}

// formatDuration formats a time.Duration into a human-readable string
func formatDuration(dur time.Duration) string {
	days := int(dur.Hours() / 24)
	hours := int(dur.Hours()) % 24
	minutes := int(dur.Minutes()) % 60
	seconds := int(dur.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d días", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d horas", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutos", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d segundos", seconds))
	}

	return strings.Join(parts, ", ")
}
