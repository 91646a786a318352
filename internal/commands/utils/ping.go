package utils

import (
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
)

// createPingCommand creates the /utils ping subcommand
func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Comprueba la latencia del bot",
		"utils",
		pingHandler,
	)
}

// pingHandler handles the /utils ping command
func pingHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		latency := ctx.Client.Session.HeartbeatLatency().Milliseconds()

		dbLatency := "sin conexión"
		if db := database.Get(); db != nil {
			if d, err := db.Ping(); err == nil {
				dbLatency = fmt.Sprintf("%dms", d.Milliseconds())
			}
		}

		ctx.Reply(fmt.Sprintf("🏓 Pong! Gateway: %dms · Base de datos: %s", latency, dbLatency))
	}()
	return nil
}
