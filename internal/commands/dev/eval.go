package dev

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/config"
	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/lavalink"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// maxEvalOutput keeps the reply under Discord's message limit
const maxEvalOutput = 1900

// CreateEvalCommand crea el comando /dev eval
func CreateEvalCommand() *discord.Command {
	return discord.NewCommand(
		"eval",
		"Evalúa código Go contra el estado del bot (Peligroso)",
		"dev",
		evalHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "codigo",
			Description: "Código o expresión Go a evaluar",
			Required:    true,
		},
	).AsDev()
}

// stripCodeFence removes a surrounding markdown code block
func stripCodeFence(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "```go")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}

// formatResult renders an eval result for Discord
func formatResult(res reflect.Value, err error) string {
	if err != nil {
		return fmt.Sprintf("❌ **Error de Ejecución:**\n```go\n%v\n```", err)
	}

	out := "nil"
	if res.IsValid() && res.CanInterface() {
		out = fmt.Sprintf("%#v", res.Interface())
	}
	if len(out) > maxEvalOutput {
		out = out[:maxEvalOutput] + "... (truncado)"
	}
	return fmt.Sprintf("✅ **Resultado:**\n```go\n%s\n```", out)
}

// newInterpreter builds a yaegi interpreter with the bot's state in scope.
// Exported names: Ctx, Bot, Session, DB, Config, Lavalink, Registry, Player.
func newInterpreter(ctx *discord.CommandContext) (*interp.Interpreter, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("cargando stdlib: %w", err)
	}

	exports := map[string]reflect.Value{
		"Ctx":      reflect.ValueOf(ctx),
		"Bot":      reflect.ValueOf(ctx.Client),
		"Session":  reflect.ValueOf(ctx.Session),
		"DB":       reflect.ValueOf(database.Get()),
		"Config":   reflect.ValueOf(config.Get()),
		"Lavalink": reflect.ValueOf(lavalink.Get()),
		"Player":   reflect.ValueOf(player),
	}
	if player != nil {
		exports["Registry"] = reflect.ValueOf(player.Registry())
	}

	if err := i.Use(interp.Exports{
		"github.com/PancyStudios/PancyMusicGo/internal/commands/dev/dev": exports,
	}); err != nil {
		return nil, fmt.Errorf("registrando variables: %w", err)
	}
	if _, err := i.Eval(`import . "github.com/PancyStudios/PancyMusicGo/internal/commands/dev"`); err != nil {
		return nil, fmt.Errorf("importando variables: %w", err)
	}
	return i, nil
}

func evalHandler(ctx *discord.CommandContext) error {
	if !config.Get().IsDev(ctx.User().ID) {
		return ctx.ReplyEphemeral("❌ **Acceso Denegado:** Este comando es solo para desarrolladores.")
	}

	if err := ctx.Defer(); err != nil {
		return err
	}

	go func() {
		defer errors.RecoverMiddleware()()
		start := time.Now()

		i, err := newInterpreter(ctx)
		if err != nil {
			ctx.EditReply("❌ Error " + err.Error())
			return
		}

		res, err := i.Eval(stripCodeFence(ctx.GetStringOption("codigo")))
		logger.Debug(fmt.Sprintf("Eval completado en %s", time.Since(start)), "DevEval")
		ctx.EditReply(formatResult(res, err))
	}()
	return nil
}
