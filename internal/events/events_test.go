package events

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue/queuetest"
	"github.com/bwmarrin/discordgo"
)

func TestIsNewGuild(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		joinedAt time.Time
		want     bool
	}{
		{"just joined", now.Add(-2 * time.Second), true},
		{"joined long ago", now.Add(-24 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNewGuild(tt.joinedAt, now); got != tt.want {
				t.Errorf("isNewGuild() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListeners(t *testing.T) {
	states := []*discordgo.VoiceState{
		{UserID: "u1", ChannelID: "music"},
		{UserID: "bot", ChannelID: "music"},
		{UserID: "u2", ChannelID: "other"},
		{UserID: "ghost", ChannelID: "music"},
	}
	isBot := func(userID string) bool { return userID == "bot" || userID == "ghost" }

	if got := listeners(states, "music", isBot); got != 1 {
		t.Errorf("listeners(music) = %d, want 1", got)
	}
	if got := listeners(states, "empty", isBot); got != 0 {
		t.Errorf("listeners(empty) = %d, want 0", got)
	}
}

func TestLeftChannel(t *testing.T) {
	tests := []struct {
		name string
		v    *discordgo.VoiceStateUpdate
		want string
	}{
		{"joined", &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{ChannelID: "a"}}, ""},
		{"left", &discordgo.VoiceStateUpdate{
			VoiceState:   &discordgo.VoiceState{ChannelID: ""},
			BeforeUpdate: &discordgo.VoiceState{ChannelID: "a"},
		}, "a"},
		{"moved", &discordgo.VoiceStateUpdate{
			VoiceState:   &discordgo.VoiceState{ChannelID: "b"},
			BeforeUpdate: &discordgo.VoiceState{ChannelID: "a"},
		}, "a"},
		{"muted", &discordgo.VoiceStateUpdate{
			VoiceState:   &discordgo.VoiceState{ChannelID: "a", SelfMute: true},
			BeforeUpdate: &discordgo.VoiceState{ChannelID: "a"},
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := leftChannel(tt.v); got != tt.want {
				t.Errorf("leftChannel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuildRemovedTearsDown(t *testing.T) {
	driver := queuetest.NewDriver()
	reg := queue.NewRegistry(driver, queuetest.Resolver{}, nil, queue.Options{IdleInterval: time.Hour, IdleThreshold: 5})
	t.Cleanup(func() { reg.Shutdown(context.Background()) })

	prev := registry
	registry = reg
	t.Cleanup(func() { registry = prev })

	if _, err := reg.Join(context.Background(), queue.SessionInfo{GuildID: "g1", VoiceChannelID: "v1"}, 1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	guildRemoved("g1")

	if reg.Get("g1") != nil {
		t.Errorf("Get(g1) = session, want nil after removal")
	}
}

func TestWelcomeEmbed(t *testing.T) {
	embed := welcomeEmbed()
	if len(embed.Fields) != 3 {
		t.Fatalf("len(Fields) = %d, want 3", len(embed.Fields))
	}
	if embed.Footer == nil {
		t.Errorf("Footer = nil, want a footer")
	}
}

func TestGuildSummary(t *testing.T) {
	got := guildSummary(&discordgo.Guild{ID: "g1", Name: "Rock", MemberCount: 12}, 3)
	for _, want := range []string{"**Rock**", "`g1`", "Miembros: 12", "Servidores totales: 3"} {
		if !strings.Contains(got, want) {
			t.Errorf("guildSummary() = %q, missing %q", got, want)
		}
	}
	if got := guildSummary(nil, 2); !strings.Contains(got, "desconocido") {
		t.Errorf("guildSummary(nil) = %q", got)
	}
}
