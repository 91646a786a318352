package lavalink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// player is the client-side view of one guild's Lavalink player.
type player struct {
	guildID   string
	channelID string

	// Discord voice credentials, forwarded to the node once both halves arrive
	sessionID string
	token     string
	endpoint  string

	active    *Handle
	position  int64
	updatedAt time.Time
	paused    bool
}

// Handle is one track prepared or started on a guild's player.
// A paused Play only prepares the handle; nothing reaches the node until
// Resume starts it.
type Handle struct {
	guildID string
	trackID uuid.UUID
	serial  uint64
	track   Track
	volume  float64

	started bool
	ended   bool
}

// TrackID implements queue.Handle.
func (h *Handle) TrackID() uuid.UUID {
	return h.trackID
}

// Track returns the track behind the handle.
func (h *Handle) Track() Track {
	return h.track
}

type updatePlayer struct {
	Track    *updateTrack `json:"track,omitempty"`
	Position *int64       `json:"position,omitempty"`
	Paused   *bool        `json:"paused,omitempty"`
	Volume   *int         `json:"volume,omitempty"`
	Voice    *voiceState  `json:"voice,omitempty"`
}

// updateTrack sets or clears the playing track. A nil Encoded is sent as
// null, which stops the player.
type updateTrack struct {
	Encoded  *string   `json:"encoded"`
	UserData *UserData `json:"userData,omitempty"`
}

type voiceState struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

func lavalinkVolume(v float64) int {
	vol := int(v*100 + 0.5)
	if vol < MinVolume {
		return MinVolume
	}
	if vol > MaxVolume {
		return MaxVolume
	}
	return vol
}

func (c *Client) patch(ctx context.Context, guildID string, body updatePlayer) error {
	node, err := c.node()
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s?noReplace=false", node.session(), guildID)
	return node.do(ctx, http.MethodPatch, path, body, nil)
}

// Join asks Discord to move the bot into channelID. The node receives the
// voice credentials once the gateway answers.
func (c *Client) Join(ctx context.Context, guildID, channelID string) error {
	if _, err := c.node(); err != nil {
		return err
	}
	c.mu.Lock()
	p, ok := c.players[guildID]
	if !ok {
		p = &player{guildID: guildID}
		c.players[guildID] = p
	}
	p.channelID = channelID
	c.mu.Unlock()

	if c.gateway == nil {
		return fmt.Errorf("sin conexión a Discord")
	}
	if err := c.gateway.ChannelVoiceJoinManual(guildID, channelID, false, true); err != nil {
		return fmt.Errorf("error joining voice channel: %w", err)
	}
	logger.Debug(fmt.Sprintf("[%s] Uniéndose al canal de voz %s", guildID, channelID), "Lavalink")
	return nil
}

// Leave destroys the guild's player and disconnects from voice.
func (c *Client) Leave(ctx context.Context, guildID string) error {
	c.mu.Lock()
	delete(c.players, guildID)
	for serial, h := range c.handles {
		if h.guildID == guildID {
			h.ended = true
			delete(c.handles, serial)
		}
	}
	c.mu.Unlock()

	var destroyErr error
	if node, err := c.node(); err == nil {
		path := fmt.Sprintf("/v4/sessions/%s/players/%s", node.session(), guildID)
		destroyErr = node.do(ctx, http.MethodDelete, path, nil, nil)
	}

	if c.gateway != nil {
		if err := c.gateway.ChannelVoiceJoinManual(guildID, "", false, true); err != nil {
			return fmt.Errorf("error leaving voice channel: %w", err)
		}
	}
	return destroyErr
}

// Play prepares src on the guild's player and starts it unless opts.Paused.
func (c *Client) Play(ctx context.Context, guildID string, src *queue.Source, opts queue.PlayOptions) (queue.Handle, error) {
	if src == nil || src.Payload == "" {
		return nil, fmt.Errorf("%w: pista sin codificar", ErrInvalidData)
	}

	c.mu.Lock()
	c.serial++
	h := &Handle{
		guildID: guildID,
		trackID: src.Descriptor.ID,
		serial:  c.serial,
		volume:  opts.Volume,
		track: Track{
			Encoded: src.Payload,
			Info: TrackInfo{
				Title:      src.Metadata.Title,
				Author:     src.Metadata.Artist,
				Length:     src.Metadata.Duration.Milliseconds(),
				URI:        src.Metadata.URL,
				ArtworkURL: src.Metadata.Artwork,
				IsStream:   src.Metadata.IsStream,
			},
		},
	}
	c.mu.Unlock()

	if opts.Paused {
		return h, nil
	}
	if err := c.start(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// start sends the handle's track to the node, replacing whatever plays.
func (c *Client) start(ctx context.Context, h *Handle) error {
	c.mu.RLock()
	ended := h.ended
	c.mu.RUnlock()
	if ended {
		return fmt.Errorf("%w: la pista ya terminó", ErrInvalidData)
	}

	encoded := h.track.Encoded
	vol := lavalinkVolume(h.volume)
	paused := false
	var zero int64
	body := updatePlayer{
		Track: &updateTrack{
			Encoded:  &encoded,
			UserData: &UserData{TrackID: h.trackID.String(), Handle: h.serial},
		},
		Position: &zero,
		Paused:   &paused,
		Volume:   &vol,
	}

	// register before the request so a fast end event finds the handle
	c.mu.Lock()
	c.handles[h.serial] = h
	c.mu.Unlock()

	if err := c.patch(ctx, h.guildID, body); err != nil {
		c.mu.Lock()
		delete(c.handles, h.serial)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	h.started = true
	if p, ok := c.players[h.guildID]; ok {
		p.active = h
		p.position = 0
		p.updatedAt = time.Now()
		p.paused = false
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handle(qh queue.Handle) (*Handle, error) {
	h, ok := qh.(*Handle)
	if !ok || h == nil {
		return nil, fmt.Errorf("%w: handle ajeno", ErrInvalidData)
	}
	return h, nil
}

// isActive reports whether h is the track the node is playing.
func (c *Client) isActive(h *Handle) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[h.guildID]
	return ok && p.active == h && !h.ended
}

// Pause implements queue.Driver.
func (c *Client) Pause(ctx context.Context, qh queue.Handle) error {
	return c.setPaused(ctx, qh, true)
}

// Resume starts a prepared handle or unpauses a started one.
func (c *Client) Resume(ctx context.Context, qh queue.Handle) error {
	h, err := c.handle(qh)
	if err != nil {
		return err
	}
	c.mu.RLock()
	started := h.started
	c.mu.RUnlock()
	if !started {
		return c.start(ctx, h)
	}
	return c.setPaused(ctx, qh, false)
}

func (c *Client) setPaused(ctx context.Context, qh queue.Handle, paused bool) error {
	h, err := c.handle(qh)
	if err != nil {
		return err
	}
	if !c.isActive(h) {
		return nil
	}
	if err := c.patch(ctx, h.guildID, updatePlayer{Paused: &paused}); err != nil {
		return err
	}
	c.mu.Lock()
	if p, ok := c.players[h.guildID]; ok {
		p.position = c.positionLocked(p)
		p.updatedAt = time.Now()
		p.paused = paused
	}
	c.mu.Unlock()
	return nil
}

// Stop ends a started handle; the node answers with a TrackEndEvent. Stopping
// a prepared handle just discards it.
func (c *Client) Stop(ctx context.Context, qh queue.Handle) error {
	h, err := c.handle(qh)
	if err != nil {
		return err
	}
	if !c.isActive(h) {
		c.mu.Lock()
		if !h.started {
			h.ended = true
		}
		c.mu.Unlock()
		return nil
	}
	return c.patch(ctx, h.guildID, updatePlayer{Track: &updateTrack{}})
}

// SetVolume takes a 0..1 volume. Prepared handles keep it until they start.
func (c *Client) SetVolume(ctx context.Context, qh queue.Handle, volume float64) error {
	h, err := c.handle(qh)
	if err != nil {
		return err
	}
	c.mu.Lock()
	h.volume = volume
	c.mu.Unlock()
	if !c.isActive(h) {
		return nil
	}
	vol := lavalinkVolume(volume)
	return c.patch(ctx, h.guildID, updatePlayer{Volume: &vol})
}

// Seek implements queue.Driver.
func (c *Client) Seek(ctx context.Context, qh queue.Handle, position time.Duration) error {
	h, err := c.handle(qh)
	if err != nil {
		return err
	}
	if !c.isActive(h) {
		return ErrNoPlayer
	}
	ms := position.Milliseconds()
	if err := c.patch(ctx, h.guildID, updatePlayer{Position: &ms}); err != nil {
		return err
	}
	c.updatePosition(h.guildID, ms)
	return nil
}

// Position estimates the playback position from the last playerUpdate.
func (c *Client) Position(qh queue.Handle) time.Duration {
	h, ok := qh.(*Handle)
	if !ok {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, exists := c.players[h.guildID]
	if !exists || p.active != h {
		return 0
	}
	return time.Duration(c.positionLocked(p)) * time.Millisecond
}

func (c *Client) positionLocked(p *player) int64 {
	pos := p.position
	if !p.paused && !p.updatedAt.IsZero() {
		pos += time.Since(p.updatedAt).Milliseconds()
	}
	if p.active != nil && !p.active.track.Info.IsStream && p.active.track.Info.Length > 0 && pos > p.active.track.Info.Length {
		pos = p.active.track.Info.Length
	}
	return pos
}

func (c *Client) updatePosition(guildID string, position int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.players[guildID]; ok {
		p.position = position
		p.updatedAt = time.Now()
	}
}

// Occupants counts the non-bot members sharing the bot's voice channel.
func (c *Client) Occupants(guildID string) (int, error) {
	c.mu.RLock()
	p, ok := c.players[guildID]
	channelID := ""
	if ok {
		channelID = p.channelID
	}
	c.mu.RUnlock()
	if !ok || channelID == "" {
		return 0, ErrNoPlayer
	}
	if c.state == nil {
		return 0, fmt.Errorf("sin estado de Discord")
	}

	g, err := c.state.Guild(guildID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		m, _ := c.state.Member(guildID, vs.UserID)
		if m != nil && m.User != nil && !m.User.Bot {
			n++
		}
	}
	return n, nil
}

func endReason(reason string) queue.EndReason {
	switch reason {
	case "finished":
		return queue.EndFinished
	case "loadFailed":
		return queue.EndLoadFailed
	case "stopped":
		return queue.EndStopped
	case "replaced":
		return queue.EndReplaced
	case "cleanup":
		return queue.EndCleanup
	default:
		return queue.EndReason(reason)
	}
}

// handleTrackEnd resolves the ended track back to its handle through the
// user data we attached when starting it.
func (c *Client) handleTrackEnd(guildID string, track *Track, reason string) {
	if track == nil || track.UserData == nil {
		logger.Debug(fmt.Sprintf("[%s] Fin de pista sin datos de usuario", guildID), "Lavalink")
		return
	}

	c.mu.Lock()
	h, ok := c.handles[track.UserData.Handle]
	if ok {
		delete(c.handles, h.serial)
		h.ended = true
		if p, exists := c.players[guildID]; exists && p.active == h {
			p.active = nil
			p.position = 0
		}
	}
	c.mu.Unlock()

	if !ok {
		logger.Debug(fmt.Sprintf("[%s] Fin de una pista desconocida (%s)", guildID, reason), "Lavalink")
		return
	}
	c.emit(queue.TrackEnded{GuildID: guildID, Handle: h, Reason: endReason(reason)})
}

func (c *Client) handleTrackStuck(guildID string, track *Track) {
	if track == nil || track.UserData == nil {
		return
	}
	c.mu.RLock()
	h, ok := c.handles[track.UserData.Handle]
	c.mu.RUnlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Stop(ctx, h); err != nil {
		logger.Error(fmt.Sprintf("[%s] No se pudo detener la pista atascada: %v", guildID, err), "Lavalink")
	}
}

// Voice handlers for Discord

func (c *Client) voiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID != c.userID() {
		return
	}

	c.mu.Lock()
	p, ok := c.players[v.GuildID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if v.ChannelID == "" {
		p.channelID = ""
		p.sessionID = ""
		c.mu.Unlock()
		return
	}
	p.channelID = v.ChannelID
	p.sessionID = v.SessionID
	c.mu.Unlock()

	c.sendVoice(v.GuildID)
}

func (c *Client) voiceServerUpdate(s *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	c.mu.Lock()
	p, ok := c.players[v.GuildID]
	if !ok {
		c.mu.Unlock()
		return
	}
	p.token = v.Token
	p.endpoint = v.Endpoint
	c.mu.Unlock()

	c.sendVoice(v.GuildID)
}

// sendVoice forwards the voice credentials once the state and server
// updates have both arrived.
func (c *Client) sendVoice(guildID string) {
	c.mu.RLock()
	p, ok := c.players[guildID]
	var vs voiceState
	if ok {
		vs = voiceState{Token: p.token, Endpoint: p.endpoint, SessionID: p.sessionID}
	}
	c.mu.RUnlock()
	if !ok || vs.Token == "" || vs.Endpoint == "" || vs.SessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.patch(ctx, guildID, updatePlayer{Voice: &vs}); err != nil {
		logger.Error(fmt.Sprintf("[%s] Error enviando la conexión de voz a Lavalink: %v", guildID, err), "Lavalink")
		return
	}
	logger.Debug(fmt.Sprintf("[%s] Conexión de voz enviada a Lavalink", guildID), "Lavalink")
}
