// Package events provides event handlers for member events
package events

import (
	"errors"
	"fmt"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterMemberEvents registers all member-related event handlers
func RegisterMemberEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildMemberRemove(onGuildMemberRemove)
}

// onGuildMemberRemove drops the music tier of a member who left
func onGuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.User == nil {
		return
	}
	logger.Debug(fmt.Sprintf("👋 %s salió del servidor %s", m.User.Username, m.GuildID), "Member")

	if err := database.DeletePermission(m.GuildID, m.User.ID); err != nil && !errors.Is(err, database.ErrPermissionManagerNotInitialized) {
		logger.Warn(fmt.Sprintf("No se pudo borrar el rango de %s: %v", m.User.ID, err), "Member")
	}
}
