package music

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/notify"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/PancyStudios/PancyMusicGo/pkg/resolver"
	"github.com/bwmarrin/discordgo"
)

const (
	colorMusic = 0x5865F2
	pageSize   = 10
)

// userMessage turns a command error into the reply shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, resolver.ErrSpotifyConfig):
		return "❌ Los enlaces de Spotify no están habilitados en este bot."
	case errors.Is(err, resolver.ErrNoResults):
		return "❌ No se encontraron resultados."
	case errors.Is(err, resolver.ErrLoadFailed), errors.Is(err, queue.ErrResolutionFailed):
		return "❌ No se pudo cargar esa canción."
	case errors.Is(err, errNotPlaylist):
		return "❌ La lista está vacía."
	case errors.Is(err, queue.ErrNotConnected):
		return "❌ No estoy en un canal de voz."
	case errors.Is(err, queue.ErrNothingPlaying):
		return "🔇 No hay nada reproduciéndose."
	case errors.Is(err, queue.ErrTrackChanged):
		return "⏭️ Esa canción ya terminó, no se saltó nada."
	case errors.Is(err, queue.ErrIndexOutOfRange):
		return "❌ Esa posición no existe en la cola."
	case errors.Is(err, queue.ErrSessionClosed):
		return "❌ La sesión de voz se está cerrando, inténtalo de nuevo en unos segundos."
	case errors.Is(err, queue.ErrDriver):
		return "❌ El reproductor de voz falló, la canción se saltó."
	case errors.Is(err, errNotRequester):
		return "🔒 Solo quien pidió la canción o un DJ puede saltarla."
	case errors.Is(err, errOtherChannel):
		return "❌ Estoy reproduciendo en otro canal de voz. Únete a él para usar este comando."
	case errors.Is(err, errBadPosition):
		return "❌ Posición inválida. Usa segundos (`90`), `m:ss` o `h:mm:ss`."
	default:
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

// reportable reports whether err should reach the error webhook.
func reportable(err error) bool {
	return errors.Is(err, queue.ErrDriver)
}

// playMessage describes the outcome of /play.
func playMessage(res PlayResult) string {
	switch {
	case res.Added > 1 || res.Partial:
		msg := fmt.Sprintf("📃 Añadidas **%d** canciones a la cola.", res.Added)
		if res.Partial {
			msg += " Algunas no se pudieron cargar."
		}
		return msg
	case res.Started:
		return fmt.Sprintf("▶️ Reproduciendo **%s**", res.Title)
	default:
		return fmt.Sprintf("✅ Añadido a la cola: **%s** (posición %d)", res.Title, res.Position)
	}
}

// progressBar renders position over duration with a fixed width.
func progressBar(position, duration time.Duration) string {
	const width = 15
	if duration <= 0 {
		return "🔴 En vivo"
	}
	filled := int(float64(width) * float64(position) / float64(duration))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▬", filled) + "🔘" + strings.Repeat("▬", width-filled)
}

// nowPlayingEmbed extends the announcer embed with playback state.
func nowPlayingEmbed(np queue.NowPlaying) *discordgo.MessageEmbed {
	embed := notify.NowPlayingEmbed(np.Track, np.Metadata)

	status := "▶️ Reproduciendo"
	if np.Paused {
		status = "⏸️ Pausado"
	}
	volume := fmt.Sprintf("%d%%", percentOf(np.Volume))
	if np.Muted {
		volume += " (silenciado)"
	}
	loop := "No"
	if np.Loop {
		loop = "Sí"
	}

	progress := progressBar(np.Position, np.Metadata.Duration)
	if !np.Metadata.IsStream && np.Metadata.Duration > 0 {
		progress += fmt.Sprintf("\n%s / %s", notify.FormatDuration(np.Position), notify.FormatDuration(np.Metadata.Duration))
	} else {
		progress = "🔴 En vivo"
	}

	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Progreso", Value: progress},
		&discordgo.MessageEmbedField{Name: "Estado", Value: status, Inline: true},
		&discordgo.MessageEmbedField{Name: "Volumen", Value: volume, Inline: true},
		&discordgo.MessageEmbedField{Name: "Repetir", Value: loop, Inline: true},
	)
	return embed
}

// queueEmbed renders one page of the queue. Page is 1-based and clamped.
func queueEmbed(items []queue.QueueItem, page int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📋 Cola de reproducción",
		Color: colorMusic,
	}
	if len(items) == 0 {
		embed.Description = "📭 La cola está vacía."
		return embed
	}

	var sb strings.Builder
	head := items[0]
	sb.WriteString(fmt.Sprintf("🎵 **Reproduciendo:** %s", head.Title))
	if head.Duration > 0 {
		sb.WriteString(" - " + notify.FormatDuration(head.Duration))
	}
	sb.WriteString("\n")

	rest := items[1:]
	pages := (len(rest) + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	if len(rest) > 0 {
		sb.WriteString("\n**Siguiente:**\n")
		start := (page - 1) * pageSize
		end := start + pageSize
		if end > len(rest) {
			end = len(rest)
		}
		for _, item := range rest[start:end] {
			sb.WriteString(fmt.Sprintf("`%d.` %s", item.Position, item.Title))
			if item.Duration > 0 {
				sb.WriteString(" - " + notify.FormatDuration(item.Duration))
			}
			sb.WriteString(fmt.Sprintf(" · <@%s>\n", item.RequestedBy))
		}
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Página %d/%d · %d en cola", page, pages, len(rest)),
	}
	return embed
}
