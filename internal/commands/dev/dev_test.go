package dev

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue/queuetest"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1 + 1", "1 + 1"},
		{"```go\nfmt.Println(1)\n```", "fmt.Println(1)"},
		{"```\nx := 2\n```", "x := 2"},
		{"  len(Config.DevUserIDs)  ", "len(Config.DevUserIDs)"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatResult(t *testing.T) {
	if got := formatResult(reflect.Value{}, nil); !strings.Contains(got, "nil") {
		t.Errorf("formatResult(invalid) = %q, want nil", got)
	}
	if got := formatResult(reflect.ValueOf(42), nil); !strings.Contains(got, "42") {
		t.Errorf("formatResult(42) = %q, want it to contain 42", got)
	}
	if got := formatResult(reflect.Value{}, errors.New("boom")); !strings.Contains(got, "boom") {
		t.Errorf("formatResult(err) = %q, want it to contain the error", got)
	}

	long := formatResult(reflect.ValueOf(strings.Repeat("a", 3000)), nil)
	if !strings.Contains(long, "(truncado)") || len(long) > maxEvalOutput+100 {
		t.Errorf("formatResult(long) has length %d, want it truncated", len(long))
	}
}

func TestSessionsEmbed(t *testing.T) {
	reg := queue.NewRegistry(queuetest.NewDriver(), queuetest.Resolver{}, nil, queue.Options{IdleInterval: time.Hour, IdleThreshold: 5})
	t.Cleanup(func() { reg.Shutdown(context.Background()) })

	if got := sessionsEmbed(reg).Description; got != "No hay sesiones activas." {
		t.Errorf("Description = %q, want the empty message", got)
	}

	q, err := reg.Join(context.Background(), queue.SessionInfo{GuildID: "g1", VoiceChannelID: "v1", TextChannelID: "t1"}, 1)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := q.Add(context.Background(), queue.NewDescriptor("song", "u1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	embed := sessionsEmbed(reg)
	if !strings.Contains(embed.Title, "(1)") {
		t.Errorf("Title = %q, want one session", embed.Title)
	}
	if !strings.Contains(embed.Description, "`g1`") || !strings.Contains(embed.Description, "song") {
		t.Errorf("Description = %q, want guild g1 playing song", embed.Description)
	}
}
