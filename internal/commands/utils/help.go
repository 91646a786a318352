package utils

import (
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
)

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra información de ayuda",
		"utils",
		helpHandler,
	)
}

const helpText = "📖 **Ayuda de PancyMusic Go**\n\n" +
	"**Música:**\n" +
	"• `/play <query>` - Reproduce una canción, URL o lista\n" +
	"• `/join` / `/leave` - Entra o sale de tu canal de voz\n" +
	"• `/queue [pagina]` - Muestra la cola\n" +
	"• `/nowplaying` - Canción actual\n" +
	"• `/skip` - Salta la canción (quien la pidió o un DJ)\n\n" +
	"**DJ:**\n" +
	"• `/pause` / `/resume` - Pausa o reanuda\n" +
	"• `/stop` - Detiene la música y limpia la cola\n" +
	"• `/remove <posicion>` - Quita una canción\n" +
	"• `/shuffle` - Mezcla la cola\n" +
	"• `/volume <0-100>` - Ajusta el volumen\n" +
	"• `/seek <posicion>` - Salta a un punto de la canción\n" +
	"• `/loop` / `/mute` - Repetición y silencio\n\n" +
	"**Administración:**\n" +
	"• `/perms set|get|list` - Rangos de música\n" +
	"• `/perms djonly` - Solo DJs pueden usar `/play`\n" +
	"• `/perms defaultvolume` - Volumen inicial de las sesiones\n\n" +
	"**Utilidad:**\n" +
	"• `/utils ping` - Comprueba la latencia\n" +
	"• `/utils status` - Estado del bot\n" +
	"• `/utils stats` - Estadísticas del bot"

// helpHandler handles the /utils help command
func helpHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		ctx.ReplyEphemeral(helpText)
	}()
	return nil
}
