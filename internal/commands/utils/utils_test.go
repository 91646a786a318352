package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue/queuetest"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 segundos"},
		{45 * time.Second, "45 segundos"},
		{time.Hour + 5*time.Second, "1 horas, 5 segundos"},
		{26*time.Hour + 3*time.Minute, "1 días, 2 horas, 3 minutos"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatusWithoutServices(t *testing.T) {
	if got := lavalinkStatus(nil); !strings.HasPrefix(got, "🔴") {
		t.Errorf("lavalinkStatus(nil) = %v", got)
	}
	if got := mqttStatus(nil); got != "🔴 Desconectado" {
		t.Errorf("mqttStatus(nil) = %v", got)
	}
}

func TestActiveSessions(t *testing.T) {
	saved := sessions
	defer func() { sessions = saved }()

	sessions = nil
	if got := activeSessions(); got != 0 {
		t.Errorf("activeSessions() = %v, want %v", got, 0)
	}

	reg := queue.NewRegistry(queuetest.NewDriver(), queuetest.Resolver{}, nil, queue.Options{IdleInterval: time.Hour, IdleThreshold: 5})
	defer reg.Shutdown(context.Background())
	sessions = reg

	for _, g := range []string{"g1", "g2"} {
		if _, err := reg.Join(context.Background(), queue.SessionInfo{GuildID: g, VoiceChannelID: "v"}, 1); err != nil {
			t.Fatalf("Join(%s) returned error: %v", g, err)
		}
	}
	if got := activeSessions(); got != 2 {
		t.Errorf("activeSessions() = %v, want %v", got, 2)
	}

	q := reg.Get("g1")
	for _, title := range []string{"one", "two", "three"} {
		if err := q.Add(context.Background(), queue.NewDescriptor(title, "u1")); err != nil {
			t.Fatalf("Add(%s) returned error: %v", title, err)
		}
	}
	total, playing, queued := musicStats()
	if total != 2 || playing != 1 || queued != 2 {
		t.Errorf("musicStats() = %d, %d, %d, want 2, 1, 2", total, playing, queued)
	}
}

func TestStatsEmbed(t *testing.T) {
	embed := statsEmbed(botStats{Version: "1.0", GoVersion: "1.24", Sessions: 3, Playing: 2, Queued: 7})
	want := map[string]string{
		"🤖 Versión":           "1.0 (Go 1.24)",
		"🎵 Sesiones de voz":    "3 (2 reproduciendo)",
		"📋 Canciones en cola": "7",
	}
	for _, f := range embed.Fields {
		if v, ok := want[f.Name]; ok && f.Value != v {
			t.Errorf("field %s = %v, want %v", f.Name, f.Value, v)
		}
	}
}

func TestHelpListsMusicCommands(t *testing.T) {
	for _, cmd := range []string{"/play", "/skip", "/perms", "/seek", "/loop"} {
		if !strings.Contains(helpText, cmd) {
			t.Errorf("helpText does not mention %s", cmd)
		}
	}
}
