package notify

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/bwmarrin/discordgo"
)

// MessageSender is the part of *discordgo.Session used for announcements
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts playback messages to the session's text channel.
type Announcer struct {
	sender MessageSender
}

var _ queue.Notifier = (*Announcer)(nil)

func NewAnnouncer(sender MessageSender) *Announcer {
	return &Announcer{sender: sender}
}

func (a *Announcer) TrackStarted(info queue.SessionInfo, src queue.Source) {
	if info.TextChannelID == "" {
		return
	}
	if _, err := a.sender.ChannelMessageSendEmbed(info.TextChannelID, NowPlayingEmbed(src.Descriptor, src.Metadata)); err != nil {
		logger.Warn(fmt.Sprintf("[%s] No se pudo anunciar la canción: %v", info.GuildID, err), "Notify")
	}
}

// TrackEnded only speaks up for tracks that could not be played.
func (a *Announcer) TrackEnded(info queue.SessionInfo, src queue.Source, reason queue.EndReason) {
	if info.TextChannelID == "" || reason != queue.EndLoadFailed {
		return
	}
	a.send(info, fmt.Sprintf("⚠️ No se pudo reproducir **%s**, pasando a la siguiente.", titleOf(src.Descriptor, src.Metadata)))
}

func (a *Announcer) SessionClosed(info queue.SessionInfo, reason queue.CloseReason) {
	if info.TextChannelID == "" {
		return
	}
	switch reason {
	case queue.CloseIdle:
		a.send(info, "💤 Salí del canal de voz por inactividad")
	case queue.CloseChannelEmpty:
		a.send(info, "👋 Salí del canal de voz porque me quedé solo")
	}
}

func (a *Announcer) send(info queue.SessionInfo, content string) {
	if _, err := a.sender.ChannelMessageSend(info.TextChannelID, content); err != nil {
		logger.Warn(fmt.Sprintf("[%s] No se pudo enviar el mensaje: %v", info.GuildID, err), "Notify")
	}
}

func titleOf(d queue.TrackDescriptor, m queue.Metadata) string {
	switch {
	case m.Title != "":
		return m.Title
	case d.Title != "":
		return d.Title
	default:
		return d.Request
	}
}

// NowPlayingEmbed renders the "now playing" card shared by the announcer and
// /nowplaying.
func NowPlayingEmbed(d queue.TrackDescriptor, m queue.Metadata) *discordgo.MessageEmbed {
	description := titleOf(d, m)
	if m.URL != "" {
		description = fmt.Sprintf("[%s](%s)", description, m.URL)
	}

	duration := FormatDuration(m.Duration)
	if m.IsStream {
		duration = "🔴 En vivo"
	}

	embed := &discordgo.MessageEmbed{
		Color:       0x5865F2,
		Title:       "🎵 Reproduciendo ahora",
		Description: description,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artista", Value: orDash(m.Artist), Inline: true},
			{Name: "Duración", Value: duration, Inline: true},
			{Name: "Pedida por", Value: mention(d.RequestedBy), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if m.Artwork != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: m.Artwork}
	}
	return embed
}

// FormatDuration formats d as m:ss, or h:mm:ss past an hour
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	seconds %= 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func mention(userID string) string {
	if userID == "" {
		return "-"
	}
	return "<@" + userID + ">"
}
