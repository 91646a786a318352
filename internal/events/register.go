// Package events provides a registry for organizing bot events.
// Events are organized by category (guild, member, voice, shard, etc.)
package events

import (
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/config"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
)

// Shared state for the handlers, set by RegisterAll
var (
	registry       *queue.Registry
	leaveWhenAlone bool
	guildsWebhook  string
)

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, reg *queue.Registry, cfg *config.Config) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	registry = reg
	leaveWhenAlone = cfg.LeaveWhenAlone
	guildsWebhook = cfg.GuildsWebhook

	// Ready event (bot startup)
	RegisterReadyEvent(client)

	// Guild events (server join/leave)
	RegisterGuildEvents(client)

	// Member events (leave)
	RegisterMemberEvents(client)

	// Voice events (bot disconnect, empty channel)
	RegisterVoiceEvents(client)

	// Gateway events (disconnect/resume)
	RegisterShardEvents(client)

	logger.Success(fmt.Sprintf("✅ %d eventos registrados correctamente", client.EventHandler.Count()), "Events")
}
