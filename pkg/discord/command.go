package discord

import (
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// CommandContext is what a command handler gets for one interaction
type CommandContext struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Client      *ExtendedClient
	// Level is the caller's music tier, filled in before Run.
	Level models.PermLevel
}

// Command is a slash command (or subcommand) and its access rules
type Command struct {
	Name        string
	Description string
	Category    string
	Options     []*discordgo.ApplicationCommandOption

	IsDev          bool
	InVoiceChannel bool
	RequiresDB     bool
	// Tier is the minimum music tier needed to run the command.
	Tier models.PermLevel
	// DJGated raises Tier to DJ while the guild has DJ-only mode on.
	DJGated bool

	Run          CommandRunFunc
	AutoComplete AutoCompleteFunc
}

type CommandRunFunc func(ctx *CommandContext) error

type AutoCompleteFunc func(ctx *CommandContext)

// NewCommand creates a command open to every tier
func NewCommand(name, description, category string, run CommandRunFunc) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Category:    category,
		Run:         run,
	}
}

func (c *Command) WithOptions(opts ...*discordgo.ApplicationCommandOption) *Command {
	c.Options = opts
	return c
}

// AsDev registers the command only in the dev guild
func (c *Command) AsDev() *Command {
	c.IsDev = true
	return c
}

// RequiresVoice rejects callers who are not in a voice channel
func (c *Command) RequiresVoice() *Command {
	c.InVoiceChannel = true
	return c
}

// RequiresDatabase rejects the command while the database is offline
func (c *Command) RequiresDatabase() *Command {
	c.RequiresDB = true
	return c
}

func (c *Command) WithTier(level models.PermLevel) *Command {
	c.Tier = level
	return c
}

// GatedByDJOnly makes the command DJ-only while the guild setting is enabled
func (c *Command) GatedByDJOnly() *Command {
	c.DJGated = true
	return c
}

func (c *Command) WithAutoComplete(fn AutoCompleteFunc) *Command {
	c.AutoComplete = fn
	return c
}

// ToApplicationCommand builds the payload sent to Discord. Commands are
// guild-only; Admin-tier commands are hidden from members without Manage
// Server until a guild admin changes the integration settings.
func (c *Command) ToApplicationCommand() *discordgo.ApplicationCommand {
	dm := false
	appCmd := &discordgo.ApplicationCommand{
		Name:         c.Name,
		Description:  c.Description,
		Options:      c.Options,
		DMPermission: &dm,
	}
	if c.Tier == models.PermAdmin {
		perms := int64(discordgo.PermissionManageGuild)
		appCmd.DefaultMemberPermissions = &perms
	}
	return appCmd
}

func (ctx *CommandContext) respond(typ discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) error {
	return ctx.Session.InteractionRespond(ctx.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: typ,
		Data: data,
	})
}

func (ctx *CommandContext) Reply(content string) error {
	return ctx.respond(discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
	})
}

func (ctx *CommandContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.respond(discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
}

// ReplyEphemeral answers only to the caller
func (ctx *CommandContext) ReplyEphemeral(content string) error {
	return ctx.respond(discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

func (ctx *CommandContext) ReplyEphemeralEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.respond(discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

// Defer acknowledges the interaction; the answer follows with EditReply.
// Used by commands that resolve tracks or evaluate code.
func (ctx *CommandContext) Defer() error {
	return ctx.respond(discordgo.InteractionResponseDeferredChannelMessageWithSource, nil)
}

func (ctx *CommandContext) EditReply(content string) error {
	_, err := ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

// GetOption finds an option by name, looking inside subcommands
func (ctx *CommandContext) GetOption(name string) *discordgo.ApplicationCommandInteractionDataOption {
	return findOption(ctx.Interaction.ApplicationCommandData().Options, name)
}

func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
		if found := findOption(opt.Options, name); found != nil {
			return found
		}
	}
	return nil
}

func (ctx *CommandContext) GetStringOption(name string) string {
	if opt := ctx.GetOption(name); opt != nil {
		return opt.StringValue()
	}
	return ""
}

func (ctx *CommandContext) GetIntOption(name string) int64 {
	if opt := ctx.GetOption(name); opt != nil {
		return opt.IntValue()
	}
	return 0
}

func (ctx *CommandContext) GetBoolOption(name string) bool {
	if opt := ctx.GetOption(name); opt != nil {
		return opt.BoolValue()
	}
	return false
}

func (ctx *CommandContext) GetUserOption(name string) *discordgo.User {
	if opt := ctx.GetOption(name); opt != nil {
		return opt.UserValue(ctx.Session)
	}
	return nil
}

// User returns the caller
func (ctx *CommandContext) User() *discordgo.User {
	if ctx.Interaction.Member != nil {
		return ctx.Interaction.Member.User
	}
	return ctx.Interaction.User
}

func (ctx *CommandContext) Member() *discordgo.Member {
	return ctx.Interaction.Member
}

// VoiceChannelID returns the voice channel the caller is connected to in
// this guild, or "" when they are not in one.
func (ctx *CommandContext) VoiceChannelID() string {
	user := ctx.User()
	if ctx.Interaction.GuildID == "" || user == nil || ctx.Session.State == nil {
		return ""
	}
	vs, err := ctx.Session.State.VoiceState(ctx.Interaction.GuildID, user.ID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
