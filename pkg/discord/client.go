// Package discord wraps discordgo with the slash command registry, the music
// permission tiers and the gateway event wiring.
package discord

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// Gateway intents: guilds for the state cache, members for tier cleanup and
// voice states for the session lifecycle.
const gatewayIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates

func init() {
	discordgo.Logger = forwardLog
}

// forwardLog sends discordgo's own messages through the bot logger
func forwardLog(msgL int, caller int, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	switch msgL {
	case discordgo.LogError:
		logger.Error(msg, "DiscordGo")
	case discordgo.LogWarning:
		logger.Warn(msg, "DiscordGo")
	case discordgo.LogInformational:
		logger.Info(msg, "DiscordGo")
	default:
		logger.Debug(msg, "DiscordGo")
	}
}

// ExtendedClient is the bot: a discordgo session plus its commands and events
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	StartTime      time.Time

	mu      sync.RWMutex
	isReady bool
}

// CommandCollection indexes commands by their full name ("perms.set")
type CommandCollection struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

func NewCommandCollection() *CommandCollection {
	return &CommandCollection{commands: make(map[string]*Command)}
}

func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	cc.commands[name] = cmd
	cc.mu.Unlock()
}

func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// Names returns the registered names in order
func (cc *CommandCollection) Names() []string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return slices.Sorted(maps.Keys(cc.commands))
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init creates the global client once
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// Get returns the global client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a client without opening the gateway
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = gatewayIntents
	session.ShardCount = 1
	session.SyncEvents = false
	// Voice states and guild owners are read from the state cache
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:  session,
		Commands: NewCommandCollection(),
	}
	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)
	return c, nil
}

// Start loads commands and events, then opens the gateway
func (c *ExtendedClient) Start() error {
	if err := c.CommandHandler.LoadCommands(); err != nil {
		logger.Error("No se pudieron cargar los comandos: "+err.Error(), "Client")
		return err
	}
	if err := c.EventHandler.LoadEvents(); err != nil {
		logger.Error("No se pudieron cargar los eventos: "+err.Error(), "Client")
		return err
	}

	c.Session.AddHandler(c.onReady)
	c.Session.AddHandler(c.handleInteraction)

	c.StartTime = time.Now()
	return c.Session.Open()
}

func (c *ExtendedClient) onReady(s *discordgo.Session, r *discordgo.Ready) {
	c.setReady(true)
	logger.Success(fmt.Sprintf("Bot conectado como %s en %d servidores", r.User.Username, len(r.Guilds)), "Client")
	c.CommandHandler.RegisterCommands()
}

func (c *ExtendedClient) setReady(ready bool) {
	c.mu.Lock()
	c.isReady = ready
	c.mu.Unlock()
}

// commandName builds the index key of an interaction, including the
// subcommand group and subcommand.
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	if len(data.Options) == 0 {
		return data.Name
	}
	opt := data.Options[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(opt.Options) > 0 {
			return data.Name + "." + opt.Name + "." + opt.Options[0].Name
		}
	case discordgo.ApplicationCommandOptionSubCommand:
		return data.Name + "." + opt.Name
	}
	return data.Name
}

func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer errors.RecoverMiddleware()()

	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		c.autocomplete(s, i)
	case discordgo.InteractionApplicationCommand:
		c.runCommand(s, i)
	}
}

func (c *ExtendedClient) autocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmd, ok := c.Commands.Get(commandName(i.ApplicationCommandData()))
	if !ok || cmd.AutoComplete == nil {
		return
	}
	cmd.AutoComplete(&CommandContext{Session: s, Interaction: i, Client: c})
}

// runCommand checks the caller's tier and runs the command. Command errors
// go to the error handler so they reach the webhook.
func (c *ExtendedClient) runCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := commandName(i.ApplicationCommandData())
	cmd, ok := c.Commands.Get(name)
	if !ok {
		logger.Warn("Comando no registrado: /"+name, "Client")
		return
	}

	ctx := &CommandContext{Session: s, Interaction: i, Client: c}
	if err := c.PermissionMiddleware(ctx, cmd); err != nil {
		logger.Debug(fmt.Sprintf("/%s rechazado: %v", name, err), "Client")
		return
	}

	err := cmd.Run(ctx)
	if err == nil {
		return
	}
	if h := errors.Get(); h != nil {
		h.HandleError("/"+name, i.GuildID, err)
		return
	}
	logger.Error(fmt.Sprintf("Error ejecutando /%s: %v", name, err), "Client")
}

// Stop closes the gateway
func (c *ExtendedClient) Stop() error {
	c.setReady(false)
	if c.Session == nil {
		return nil
	}
	return c.Session.Close()
}

// IsReady reports whether the gateway sent Ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of cached guilds
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}
