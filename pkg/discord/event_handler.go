package discord

import (
	"fmt"
	"sync"

	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// EventHandler tracks the gateway handlers added by internal/events
type EventHandler struct {
	client *ExtendedClient

	mu    sync.RWMutex
	names []string
}

func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{client: client}
}

// LoadEvents logs the handlers added before Start
func (eh *EventHandler) LoadEvents() error {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	logger.System(fmt.Sprintf("Eventos cargados: %v", eh.names), "EventHandler")
	return nil
}

// Count returns how many handlers were registered
func (eh *EventHandler) Count() int {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return len(eh.names)
}

// on adds handler to the session. A panic in one handler is reported and
// does not reach discordgo's event loop.
func on[E any](eh *EventHandler, name string, handler func(*discordgo.Session, E)) {
	eh.client.Session.AddHandler(func(s *discordgo.Session, e E) {
		defer errors.RecoverMiddleware()()
		handler(s, e)
	})

	eh.mu.Lock()
	eh.names = append(eh.names, name)
	eh.mu.Unlock()
	logger.Debug(fmt.Sprintf("Evento '%s' registrado", name), "EventHandler")
}

type (
	ReadyHandler             func(s *discordgo.Session, r *discordgo.Ready)
	ResumedHandler           func(s *discordgo.Session, r *discordgo.Resumed)
	DisconnectHandler        func(s *discordgo.Session, d *discordgo.Disconnect)
	GuildCreateHandler       func(s *discordgo.Session, g *discordgo.GuildCreate)
	GuildDeleteHandler       func(s *discordgo.Session, g *discordgo.GuildDelete)
	GuildMemberRemoveHandler func(s *discordgo.Session, m *discordgo.GuildMemberRemove)
	VoiceStateUpdateHandler  func(s *discordgo.Session, v *discordgo.VoiceStateUpdate)
)

func (eh *EventHandler) OnReady(handler ReadyHandler) {
	on[*discordgo.Ready](eh, "Ready", handler)
}

func (eh *EventHandler) OnResumed(handler ResumedHandler) {
	on[*discordgo.Resumed](eh, "Resumed", handler)
}

func (eh *EventHandler) OnDisconnect(handler DisconnectHandler) {
	on[*discordgo.Disconnect](eh, "Disconnect", handler)
}

// OnGuildCreate fires for new guilds and for every cached guild on connect
func (eh *EventHandler) OnGuildCreate(handler GuildCreateHandler) {
	on[*discordgo.GuildCreate](eh, "GuildCreate", handler)
}

// OnGuildDelete fires when the bot leaves a guild or the guild goes unavailable
func (eh *EventHandler) OnGuildDelete(handler GuildDeleteHandler) {
	on[*discordgo.GuildDelete](eh, "GuildDelete", handler)
}

func (eh *EventHandler) OnGuildMemberRemove(handler GuildMemberRemoveHandler) {
	on[*discordgo.GuildMemberRemove](eh, "GuildMemberRemove", handler)
}

func (eh *EventHandler) OnVoiceStateUpdate(handler VoiceStateUpdateHandler) {
	on[*discordgo.VoiceStateUpdate](eh, "VoiceStateUpdate", handler)
}
