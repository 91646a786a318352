// Package events provides event handlers for voice events
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/discord"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/bwmarrin/discordgo"
)

// RegisterVoiceEvents registers all voice-related event handlers
func RegisterVoiceEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnVoiceStateUpdate(onVoiceStateUpdate)
}

// listeners counts the non-bot members in channelID. isBot reports
// unknown users as bots.
func listeners(states []*discordgo.VoiceState, channelID string, isBot func(userID string) bool) int {
	n := 0
	for _, vs := range states {
		if vs.ChannelID == channelID && !isBot(vs.UserID) {
			n++
		}
	}
	return n
}

// leftChannel returns the channel v moved out of, if any
func leftChannel(v *discordgo.VoiceStateUpdate) string {
	if v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID == "" || v.BeforeUpdate.ChannelID == v.ChannelID {
		return ""
	}
	return v.BeforeUpdate.ChannelID
}

func teardown(guildID string, reason queue.CloseReason) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if registry.Teardown(ctx, guildID, reason) {
		logger.Debug(fmt.Sprintf("[%s] Sesión cerrada por evento de voz (%s)", guildID, reason), "Voice")
	}
}

// onVoiceStateUpdate ends sessions when the bot is disconnected or, with
// leaveWhenAlone, when the last listener leaves its channel.
func onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if registry == nil {
		return
	}
	q := registry.Get(v.GuildID)
	if q == nil {
		return
	}

	if s.State != nil && s.State.User != nil && v.UserID == s.State.User.ID {
		if v.ChannelID == "" {
			teardown(v.GuildID, queue.CloseDisconnected)
		}
		return
	}

	botChannel := q.Info().VoiceChannelID
	if !leaveWhenAlone || leftChannel(v) != botChannel {
		return
	}

	g, err := s.State.Guild(v.GuildID)
	if err != nil {
		return
	}
	isBot := func(userID string) bool {
		m, err := s.State.Member(v.GuildID, userID)
		return err != nil || m.User == nil || m.User.Bot
	}
	if listeners(g.VoiceStates, botChannel, isBot) == 0 {
		teardown(v.GuildID, queue.CloseChannelEmpty)
	}
}
