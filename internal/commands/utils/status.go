package utils

import (
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/lavalink"
	"github.com/PancyStudios/PancyMusicGo/pkg/mqtt"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		statusHandler,
	)
}

// statusHandler handles the /utils status command
func statusHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		dbStatus := "🔴 Sin inicializar"
		if db := database.Get(); db != nil {
			dbStatus, _ = db.GetStatus()
		}

		ctx.Reply(fmt.Sprintf(
			"📊 **Estado del Bot**\n"+
				"• Bot: 🟢 Online\n"+
				"• Base de datos: %s\n"+
				"• Lavalink: %s\n"+
				"• MQTT: %s\n"+
				"• Servidores: %d\n"+
				"• Sesiones de voz: %d",
			dbStatus,
			lavalinkStatus(lavalink.Get()),
			mqttStatus(mqtt.Get()),
			ctx.Client.GuildCount(),
			activeSessions(),
		))
	}()
	return nil
}

func lavalinkStatus(c *lavalink.Client) string {
	if c == nil {
		return "🔴 Sin inicializar"
	}
	connected, total, players := c.Stats()
	icon := "🟢"
	switch {
	case connected == 0:
		icon = "🔴"
	case connected < total:
		icon = "🟡"
	}
	return fmt.Sprintf("%s %d/%d nodos · %d reproductores", icon, connected, total, players)
}

func mqttStatus(mc *mqtt.MqttCommunicator) string {
	if mc == nil || !mc.IsConnected() {
		return "🔴 Desconectado"
	}
	return "🟢 Conectado"
}
