// Package remote serves the MQTT requests the dashboard uses to inspect and
// control guild queues.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMusicGo/internal/commands/music"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/PancyStudios/PancyMusicGo/pkg/mqtt"
	"github.com/PancyStudios/PancyMusicGo/pkg/notify"
	"github.com/goccy/go-json"
)

// Request topics, relative to mqtt.RequestRoot
const (
	topicGuilds  = "music/guilds"
	topicState   = "music/+/state"
	topicControl = "music/+/control"
)

const controlTimeout = 15 * time.Second

var (
	ErrBadTopic      = errors.New("tópico inválido")
	ErrUnknownAction = errors.New("acción desconocida")
)

// Router is the part of the MQTT communicator that registers request handlers
type Router interface {
	On(pattern string, handler mqtt.RequestHandler)
}

// ControlRequest is the payload of music/<guild>/control
type ControlRequest struct {
	Action   string `json:"action"`
	Volume   int    `json:"volume,omitempty"`
	Position int    `json:"position,omitempty"`
	Seek     string `json:"seek,omitempty"`
}

// Server answers dashboard requests using the music player
type Server struct {
	player *music.Player
}

// Register wires the music routes into router
func Register(router Router, player *music.Player) *Server {
	s := &Server{player: player}
	router.On(topicGuilds, s.guilds)
	router.On(topicState, s.state)
	router.On(topicControl, s.control)
	logger.Debug("Rutas MQTT de música registradas", "Remote")
	return s
}

// guildFromTopic extracts <guild> from music/<guild>/<op>
func guildFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "music" || parts[1] == "" {
		return "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	return parts[1], nil
}

func (s *Server) snapshot(guildID string) notify.MusicState {
	return notify.Snapshot(guildID, s.player.Registry().Get(guildID))
}

func (s *Server) guilds(topic string, _ json.RawMessage) (any, error) {
	reg := s.player.Registry()
	states := make([]notify.MusicState, 0)
	for _, guildID := range reg.Guilds() {
		states = append(states, notify.Snapshot(guildID, reg.Get(guildID)))
	}
	return states, nil
}

func (s *Server) state(topic string, _ json.RawMessage) (any, error) {
	guildID, err := guildFromTopic(topic)
	if err != nil {
		return nil, err
	}
	return s.snapshot(guildID), nil
}

// control runs one action and answers with the resulting state. Remote
// callers act with the DJ tier.
func (s *Server) control(topic string, payload json.RawMessage) (any, error) {
	guildID, err := guildFromTopic(topic)
	if err != nil {
		return nil, err
	}
	var req ControlRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("payload inválido: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	if err := s.apply(ctx, guildID, req); err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("[%s] Acción remota: %s", guildID, req.Action), "Remote")
	return s.snapshot(guildID), nil
}

func (s *Server) apply(ctx context.Context, guildID string, req ControlRequest) error {
	p := s.player
	var err error
	switch strings.ToLower(req.Action) {
	case "skip":
		_, err = p.Skip(ctx, guildID, "", models.PermDJ)
	case "pause":
		err = p.Pause(ctx, guildID)
	case "resume":
		err = p.Resume(ctx, guildID)
	case "stop":
		err = p.Stop(ctx, guildID)
	case "shuffle":
		_, err = p.Shuffle(ctx, guildID)
	case "volume":
		_, err = p.SetVolume(ctx, guildID, req.Volume)
	case "remove":
		_, err = p.Remove(ctx, guildID, req.Position)
	case "seek":
		_, err = p.Seek(ctx, guildID, req.Seek)
	case "loop":
		_, err = p.ToggleLoop(guildID)
	case "mute":
		_, err = p.ToggleMute(ctx, guildID)
	case "leave":
		err = p.Leave(ctx, guildID)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	return err
}
