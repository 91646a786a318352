package discord

import (
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/config"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler keeps the application commands sent to Discord. Global
// commands go to every guild, dev commands only to the dev guild.
type CommandHandler struct {
	client *ExtendedClient
	global []*discordgo.ApplicationCommand
	dev    []*discordgo.ApplicationCommand
}

func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{client: client}
}

// LoadCommands validates what the command packages registered. Two
// application commands with the same name would make Discord reject the
// whole sync.
func (ch *CommandHandler) LoadCommands() error {
	for _, set := range [][]*discordgo.ApplicationCommand{ch.global, ch.dev} {
		seen := make(map[string]bool, len(set))
		for _, cmd := range set {
			if seen[cmd.Name] {
				return fmt.Errorf("comando duplicado: /%s", cmd.Name)
			}
			seen[cmd.Name] = true
		}
	}
	logger.System(fmt.Sprintf("Comandos cargados: %d globales, %d de desarrollo, %d manejadores",
		len(ch.global), len(ch.dev), ch.client.Commands.Size()), "CommandHandler")
	return nil
}

// RegisterCommand adds a top-level command
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)
	if cmd.IsDev {
		ch.AddDevCommand(cmd.ToApplicationCommand())
	} else {
		ch.AddGlobalCommand(cmd.ToApplicationCommand())
	}
	logger.Debug("Comando registrado: /"+cmd.Name, "CommandHandler")
}

// BuildCommandGroup indexes each subcommand as "<name>.<sub>" and returns the
// parent command. The parent takes the highest tier of its subcommands so
// Discord hides admin groups the same way.
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	parent := NewCommand(name, description, "", nil)
	for _, cmd := range subcommands {
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)
		parent.Options = append(parent.Options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
		if cmd.Tier > parent.Tier {
			parent.Tier = cmd.Tier
		}
	}
	return parent.ToApplicationCommand()
}

func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.global = append(ch.global, cmd)
}

func (ch *CommandHandler) AddDevCommand(cmd *discordgo.ApplicationCommand) {
	ch.dev = append(ch.dev, cmd)
}

// Definitions returns the commands defined in code for a scope: the dev
// commands when dev is set, the global ones otherwise.
func (ch *CommandHandler) Definitions(dev bool) []*discordgo.ApplicationCommand {
	if dev {
		return ch.dev
	}
	return ch.global
}

// RegisterCommands syncs on Ready. Failures are logged; the bot keeps
// running with whatever Discord already had.
func (ch *CommandHandler) RegisterCommands() {
	logger.Info("🔄 Registrando comandos...", "CommandHandler")
	if err := ch.SyncCommands(); err != nil {
		logger.Error("Error registrando comandos: "+err.Error(), "CommandHandler")
		return
	}
	logger.Success("✅ Comandos registrados.", "CommandHandler")
}

func (ch *CommandHandler) appID() string {
	return ch.client.Session.State.User.ID
}

// ListGlobalCommands returns the global commands Discord currently has
func (ch *CommandHandler) ListGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.appID(), "")
}

// ListGuildCommands returns the commands Discord has for one guild
func (ch *CommandHandler) ListGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.appID(), guildID)
}

func (ch *CommandHandler) overwrite(guildID string, cmds []*discordgo.ApplicationCommand) error {
	if cmds == nil {
		cmds = []*discordgo.ApplicationCommand{}
	}
	_, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.appID(), guildID, cmds)
	return err
}

// UnregisterCommands removes every global command
func (ch *CommandHandler) UnregisterCommands() error {
	if err := ch.overwrite("", nil); err != nil {
		return err
	}
	logger.Success("Comandos globales eliminados.", "CommandHandler")
	return nil
}

// UnregisterGuildCommands removes every command of one guild
func (ch *CommandHandler) UnregisterGuildCommands(guildID string) error {
	if err := ch.overwrite(guildID, nil); err != nil {
		return err
	}
	logger.Success("Comandos del servidor "+guildID+" eliminados.", "CommandHandler")
	return nil
}

// SyncCommands replaces the global commands with the ones defined in code,
// dropping stale ones. Dev commands are synced to the dev guild when set.
func (ch *CommandHandler) SyncCommands() error {
	if err := ch.overwrite("", ch.global); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("%d comandos globales sincronizados", len(ch.global)), "CommandHandler")

	if guildID := config.Get().DevGuildID; guildID != "" {
		return ch.SyncGuildCommands(guildID)
	}
	return nil
}

// SyncGuildCommands replaces the commands of guildID with the dev commands
func (ch *CommandHandler) SyncGuildCommands(guildID string) error {
	if err := ch.overwrite(guildID, ch.dev); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("%d comandos de desarrollo sincronizados en %s", len(ch.dev), guildID), "CommandHandler")
	return nil
}
