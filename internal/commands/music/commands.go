package music

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/PancyStudios/PancyMusicGo/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

// commandTimeout bounds a single command, including track resolution.
const commandTimeout = 30 * time.Second

var (
	minVolume   = 0.0
	minPosition = 1.0
)

// Register registers every music command
func Register(client *discord.ExtendedClient, p *Player) {
	for _, cmd := range p.Commands() {
		client.CommandHandler.RegisterCommand(cmd)
	}
}

// Commands builds the music command set.
func (p *Player) Commands() []*discord.Command {
	return []*discord.Command{
		discord.NewCommand("play", "Reproduce una canción o lista, o la añade a la cola", "music", p.playHandler).
			WithOptions(&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Nombre de la canción, URL o lista",
				Required:    true,
			}).
			RequiresVoice().
			GatedByDJOnly(),

		discord.NewCommand("join", "Conecta el bot a tu canal de voz", "music", p.joinHandler).
			RequiresVoice(),

		discord.NewCommand("leave", "Desconecta el bot y vacía la cola", "music", p.leaveHandler),

		discord.NewCommand("skip", "Salta la canción actual", "music", p.skipHandler).
			RequiresVoice(),

		discord.NewCommand("remove", "Quita una canción de la cola", "music", p.removeHandler).
			WithOptions(&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "posicion",
				Description: "Posición en /queue",
				Required:    true,
				MinValue:    &minPosition,
			}).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("stop", "Detiene la reproducción y limpia la cola", "music", p.stopHandler).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("shuffle", "Mezcla la cola", "music", p.shuffleHandler).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("pause", "Pausa la reproducción", "music", p.pauseHandler).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("resume", "Reanuda la reproducción", "music", p.resumeHandler).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("volume", "Ajusta el volumen de reproducción", "music", p.volumeHandler).
			WithOptions(&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "level",
				Description: "Nivel de volumen (0-100)",
				Required:    true,
				MinValue:    &minVolume,
				MaxValue:    100,
			}).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("seek", "Salta a un punto de la canción actual", "music", p.seekHandler).
			WithOptions(&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "posicion",
				Description: "Segundos, m:ss o h:mm:ss",
				Required:    true,
			}).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("loop", "Activa o desactiva la repetición de la canción actual", "music", p.loopHandler).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("mute", "Silencia o restaura el volumen", "music", p.muteHandler).
			RequiresVoice().
			WithTier(models.PermDJ),

		discord.NewCommand("queue", "Muestra la cola de reproducción", "music", p.queueHandler).
			WithOptions(&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "pagina",
				Description: "Página de la cola",
				MinValue:    &minPosition,
			}),

		discord.NewCommand("nowplaying", "Muestra la canción que se está reproduciendo", "music", p.nowPlayingHandler),
	}
}

// respond replies with msg, or with the user-facing text of err. Only driver
// failures are returned for reporting.
func respond(ctx *discord.CommandContext, msg string, err error) error {
	if err != nil {
		if replyErr := ctx.ReplyEphemeral(userMessage(err)); replyErr != nil {
			return replyErr
		}
		if reportable(err) {
			return err
		}
		return nil
	}
	return ctx.Reply(msg)
}

func timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// playHandler handles the /play command
func (p *Player) playHandler(ctx *discord.CommandContext) error {
	query := ctx.GetStringOption("query")
	if query == "" {
		return ctx.ReplyEphemeral("❌ Debes proporcionar una canción para reproducir.")
	}

	// Resolution can take longer than the interaction deadline
	if err := ctx.Defer(); err != nil {
		return err
	}

	c, cancel := timeout()
	defer cancel()

	res, err := p.Play(c, PlayRequest{
		GuildID:        ctx.Interaction.GuildID,
		VoiceChannelID: ctx.VoiceChannelID(),
		TextChannelID:  ctx.Interaction.ChannelID,
		UserID:         ctx.User().ID,
		Query:          query,
	})
	if err != nil {
		if editErr := ctx.EditReply(userMessage(err)); editErr != nil {
			return editErr
		}
		if reportable(err) {
			return err
		}
		return nil
	}
	return ctx.EditReply(playMessage(res))
}

// joinHandler handles the /join command
func (p *Player) joinHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	_, err := p.Join(c, ctx.Interaction.GuildID, ctx.VoiceChannelID(), ctx.Interaction.ChannelID)
	return respond(ctx, fmt.Sprintf("🔊 Conectado a <#%s>", ctx.VoiceChannelID()), err)
}

// leaveHandler handles the /leave command
func (p *Player) leaveHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	err := p.Leave(c, ctx.Interaction.GuildID)
	return respond(ctx, "👋 Desconectado del canal de voz.", err)
}

// skipHandler handles the /skip command
func (p *Player) skipHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	title, err := p.Skip(c, ctx.Interaction.GuildID, ctx.User().ID, ctx.Level)
	return respond(ctx, fmt.Sprintf("⏭️ Saltada: **%s**", title), err)
}

// removeHandler handles the /remove command
func (p *Player) removeHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	d, err := p.Remove(c, ctx.Interaction.GuildID, int(ctx.GetIntOption("posicion")))
	title := d.Title
	if title == "" {
		title = d.Request
	}
	return respond(ctx, fmt.Sprintf("🗑️ Quitada de la cola: **%s**", title), err)
}

// stopHandler handles the /stop command
func (p *Player) stopHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	err := p.Stop(c, ctx.Interaction.GuildID)
	return respond(ctx, "⏹️ Reproducción detenida y cola limpiada.", err)
}

// shuffleHandler handles the /shuffle command
func (p *Player) shuffleHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	n, err := p.Shuffle(c, ctx.Interaction.GuildID)
	return respond(ctx, fmt.Sprintf("🔀 Cola mezclada (%d canciones).", n), err)
}

// pauseHandler handles the /pause command
func (p *Player) pauseHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	err := p.Pause(c, ctx.Interaction.GuildID)
	return respond(ctx, "⏸️ Reproducción pausada.", err)
}

// resumeHandler handles the /resume command
func (p *Player) resumeHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	err := p.Resume(c, ctx.Interaction.GuildID)
	return respond(ctx, "▶️ Reproducción reanudada.", err)
}

// volumeHandler handles the /volume command
func (p *Player) volumeHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	level, err := p.SetVolume(c, ctx.Interaction.GuildID, int(ctx.GetIntOption("level")))
	return respond(ctx, fmt.Sprintf("🔊 Volumen ajustado a %d%%", level), err)
}

// seekHandler handles the /seek command
func (p *Player) seekHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	pos, err := p.Seek(c, ctx.Interaction.GuildID, ctx.GetStringOption("posicion"))
	return respond(ctx, fmt.Sprintf("⏩ Posición: %s", notify.FormatDuration(pos)), err)
}

// loopHandler handles the /loop command
func (p *Player) loopHandler(ctx *discord.CommandContext) error {
	loop, err := p.ToggleLoop(ctx.Interaction.GuildID)
	msg := "➡️ Repetición desactivada."
	if loop {
		msg = "🔂 Repitiendo la canción actual."
	}
	return respond(ctx, msg, err)
}

// muteHandler handles the /mute command
func (p *Player) muteHandler(ctx *discord.CommandContext) error {
	c, cancel := timeout()
	defer cancel()

	muted, err := p.ToggleMute(c, ctx.Interaction.GuildID)
	msg := "🔊 Volumen restaurado."
	if muted {
		msg = "🔇 Reproducción silenciada."
	}
	return respond(ctx, msg, err)
}

// queueHandler handles the /queue command
func (p *Player) queueHandler(ctx *discord.CommandContext) error {
	items, err := p.Queue(ctx.Interaction.GuildID)
	if err != nil {
		return respond(ctx, "", err)
	}
	page := int(ctx.GetIntOption("pagina"))
	return ctx.ReplyEmbed(queueEmbed(items, page))
}

// nowPlayingHandler handles the /nowplaying command
func (p *Player) nowPlayingHandler(ctx *discord.CommandContext) error {
	np, err := p.NowPlaying(ctx.Interaction.GuildID)
	if err != nil {
		return respond(ctx, "", err)
	}
	return ctx.ReplyEmbed(nowPlayingEmbed(np))
}
