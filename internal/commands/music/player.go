// Package music provides the music slash commands. Handlers are thin
// wrappers around Player, which talks to the queue registry.
package music

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/database"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
)

var (
	errNotRequester = errors.New("solo quien pidió la canción o un DJ puede saltarla")
	errOtherChannel = errors.New("el bot está en otro canal de voz")
	errBadPosition  = errors.New("posición de tiempo inválida")
	errNotPlaylist  = errors.New("el resolvedor no admite listas")
)

// Player executes music commands for every guild.
type Player struct {
	registry *queue.Registry
	// defaultVolume is used when a guild has no volume of its own, 0..100.
	defaultVolume int
	settings      func(guildID string) models.GuildMusicSettings
}

// NewPlayer creates a Player backed by registry. Guild settings are read
// from the database.
func NewPlayer(registry *queue.Registry, defaultVolume int) *Player {
	return &Player{
		registry:      registry,
		defaultVolume: defaultVolume,
		settings:      database.GetGuildSettings,
	}
}

// Registry returns the registry the player drives.
func (p *Player) Registry() *queue.Registry {
	return p.registry
}

// PlayRequest is the input of /play.
type PlayRequest struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	UserID         string
	Query          string
}

// PlayResult describes what /play queued.
type PlayResult struct {
	Title    string
	Added    int
	Position int
	Started  bool
	// Partial is set when some playlist entries could not be queued.
	Partial bool
}

// sessionVolume picks the starting volume of a new session, 0..1. A zero
// guild setting means the guild never chose one.
func (p *Player) sessionVolume(guildID string) float64 {
	v := p.defaultVolume
	if p.settings != nil {
		if s := p.settings(guildID); s.DefaultVolume > 0 {
			v = s.DefaultVolume
		}
	}
	return float64(v) / 100
}

// Join connects the bot to the caller's voice channel.
func (p *Player) Join(ctx context.Context, guildID, voiceChannelID, textChannelID string) (*queue.GuildQueue, error) {
	return p.registry.Join(ctx, queue.SessionInfo{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  textChannelID,
	}, p.sessionVolume(guildID))
}

// Leave disconnects the bot and drops the guild's queue.
func (p *Player) Leave(ctx context.Context, guildID string) error {
	return p.registry.Leave(ctx, guildID)
}

// queueFor returns the guild's queue or ErrNotConnected.
func (p *Player) queueFor(guildID string) (*queue.GuildQueue, error) {
	q := p.registry.Get(guildID)
	if q == nil {
		return nil, queue.ErrNotConnected
	}
	return q, nil
}

// Play queues a request, joining the caller's channel when needed. A busy
// session in another channel is not moved.
func (p *Player) Play(ctx context.Context, req PlayRequest) (PlayResult, error) {
	if q := p.registry.Get(req.GuildID); q != nil && !q.IsEmpty() && q.Info().VoiceChannelID != req.VoiceChannelID {
		return PlayResult{}, errOtherChannel
	}

	q, err := p.Join(ctx, req.GuildID, req.VoiceChannelID, req.TextChannelID)
	if err != nil {
		return PlayResult{}, err
	}

	if pr, ok := p.registry.Resolver().(queue.PlaylistResolver); ok && pr.IsPlaylist(req.Query) {
		return p.playlist(ctx, q, pr, req)
	}

	d := queue.NewDescriptor(req.Query, req.UserID)
	if err := q.Add(ctx, d); err != nil {
		return PlayResult{}, err
	}

	res := PlayResult{Title: d.Request, Added: 1, Position: q.Len() - 1}
	if np, err := q.NowPlaying(); err == nil && np.Track.ID == d.ID {
		res.Title = np.Metadata.Title
		res.Started = true
		res.Position = 0
	}
	return res, nil
}

func (p *Player) playlist(ctx context.Context, q *queue.GuildQueue, pr queue.PlaylistResolver, req PlayRequest) (PlayResult, error) {
	ds, err := pr.ResolvePlaylist(ctx, req.Query, req.UserID)
	if err != nil {
		return PlayResult{}, err
	}
	if len(ds) == 0 {
		return PlayResult{}, errNotPlaylist
	}

	before := q.Len()
	addErr := q.AddAll(ctx, ds)
	added := q.Len() - before
	if added <= 0 && addErr != nil {
		return PlayResult{}, addErr
	}
	if addErr != nil {
		logger.Warn(fmt.Sprintf("[%s] Lista añadida con errores: %v", req.GuildID, addErr), "Music")
	}

	return PlayResult{
		Title:    req.Query,
		Added:    added,
		Position: before,
		Started:  before == 0,
		Partial:  addErr != nil,
	}, nil
}

// Skip stops the current track. Only its requester or a DJ may skip.
func (p *Player) Skip(ctx context.Context, guildID, userID string, level models.PermLevel) (string, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return "", err
	}
	np, err := q.NowPlaying()
	if err != nil {
		return "", err
	}
	if np.Track.RequestedBy != userID && !level.AtLeast(models.PermDJ) {
		return "", errNotRequester
	}
	// np may have ended since; only that track is stopped
	if err := q.SkipTrack(ctx, np.Track.ID); err != nil {
		return "", err
	}
	return np.Metadata.Title, nil
}

// Remove drops the entry at position, as numbered by /queue.
func (p *Player) Remove(ctx context.Context, guildID string, position int) (queue.TrackDescriptor, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return queue.TrackDescriptor{}, err
	}
	return q.Remove(ctx, position)
}

// Stop halts playback and clears the queue. The bot stays connected.
func (p *Player) Stop(ctx context.Context, guildID string) error {
	q, err := p.queueFor(guildID)
	if err != nil {
		return err
	}
	return q.Stop(ctx)
}

// Shuffle reorders the pending requests and returns how many there are.
func (p *Player) Shuffle(ctx context.Context, guildID string) (int, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return 0, err
	}
	q.Shuffle(ctx)
	return q.Len(), nil
}

// Pause pauses the current track.
func (p *Player) Pause(ctx context.Context, guildID string) error {
	q, err := p.queueFor(guildID)
	if err != nil {
		return err
	}
	return q.Pause(ctx)
}

// Resume resumes the current track.
func (p *Player) Resume(ctx context.Context, guildID string) error {
	q, err := p.queueFor(guildID)
	if err != nil {
		return err
	}
	return q.Resume(ctx)
}

// SetVolume sets the volume as a percentage. Values outside 0..100 are
// clamped by the queue.
func (p *Player) SetVolume(ctx context.Context, guildID string, percent int) (int, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return 0, err
	}
	if err := q.SetVolume(ctx, float64(percent)/100); err != nil {
		return 0, err
	}
	return percentOf(q.Volume()), nil
}

// Seek moves the current track to position.
func (p *Player) Seek(ctx context.Context, guildID, position string) (time.Duration, error) {
	pos, err := parsePosition(position)
	if err != nil {
		return 0, err
	}
	q, err := p.queueFor(guildID)
	if err != nil {
		return 0, err
	}
	if err := q.Seek(ctx, pos); err != nil {
		return 0, err
	}
	return pos, nil
}

// ToggleLoop flips loop mode and returns the new value.
func (p *Player) ToggleLoop(guildID string) (bool, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return false, err
	}
	loop := !q.Loop()
	q.SetLoop(loop)
	return loop, nil
}

// ToggleMute flips mute and returns the new value.
func (p *Player) ToggleMute(ctx context.Context, guildID string) (bool, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return false, err
	}
	muted := !q.Muted()
	if err := q.SetMuted(ctx, muted); err != nil {
		return q.Muted(), err
	}
	return muted, nil
}

// NowPlaying describes the current track.
func (p *Player) NowPlaying(guildID string) (queue.NowPlaying, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return queue.NowPlaying{}, err
	}
	return q.NowPlaying()
}

// Queue returns the pending requests, head first.
func (p *Player) Queue(guildID string) ([]queue.QueueItem, error) {
	q, err := p.queueFor(guildID)
	if err != nil {
		return nil, err
	}
	return q.CurrentQueue(), nil
}

func percentOf(v float64) int {
	return int(v*100 + 0.5)
}

// parsePosition accepts seconds ("90"), "m:ss" or "h:mm:ss".
func parsePosition(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errBadPosition
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errBadPosition
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, errBadPosition
		}
		if i > 0 && n >= 60 {
			return 0, errBadPosition
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
