// Package queue implements the per-guild playback sequencer.
// Each guild owns one GuildQueue holding the ordered requests, the track
// currently playing and a paused, pre-resolved next track. The Registry maps
// guild ids to queues and runs one idle monitor per session.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TrackDescriptor is an immutable request waiting in a queue.
// Title is an optional display hint known before resolution, e.g. from a
// playlist listing.
type TrackDescriptor struct {
	ID          uuid.UUID
	Request     string
	RequestedBy string
	Title       string
}

// NewDescriptor tags a request with a fresh id.
func NewDescriptor(request, requestedBy string) TrackDescriptor {
	return TrackDescriptor{
		ID:          uuid.New(),
		Request:     request,
		RequestedBy: requestedBy,
	}
}

// Metadata describes a resolved track.
type Metadata struct {
	Title    string
	Artist   string
	Duration time.Duration
	URL      string
	Artwork  string
	IsStream bool
}

// Source is a playable track produced by a Resolver.
// Payload is opaque to the queue and only read by the Driver.
type Source struct {
	Descriptor TrackDescriptor
	Metadata   Metadata
	Payload    string
}

// Handle identifies one playback started by a Driver.
type Handle interface {
	TrackID() uuid.UUID
}

// PlayOptions controls how the driver prepares a track.
type PlayOptions struct {
	// Paused prepares the track without producing audio.
	Paused bool
	Volume float64
}

// EndReason explains why a handle stopped.
type EndReason string

const (
	EndFinished   EndReason = "finished"
	EndStopped    EndReason = "stopped"
	EndReplaced   EndReason = "replaced"
	EndLoadFailed EndReason = "loadFailed"
	EndCleanup    EndReason = "cleanup"
	EndFailed     EndReason = "driverError"
)

// TrackEnded is delivered by the driver when a handle stops producing audio.
type TrackEnded struct {
	GuildID string
	Handle  Handle
	Reason  EndReason
}

// CloseReason explains why a session was torn down.
type CloseReason string

const (
	CloseLeave        CloseReason = "leave"
	CloseIdle         CloseReason = "idle"
	CloseChannelEmpty CloseReason = "channel_empty"
	CloseDisconnected CloseReason = "disconnected"
	CloseGuildRemoved CloseReason = "guild_removed"
	CloseShutdown     CloseReason = "shutdown"
)

// SessionInfo locates a voice session.
type SessionInfo struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
}

// Driver owns the voice connection of every guild.
type Driver interface {
	Join(ctx context.Context, guildID, channelID string) error
	Leave(ctx context.Context, guildID string) error
	Play(ctx context.Context, guildID string, src *Source, opts PlayOptions) (Handle, error)
	Pause(ctx context.Context, h Handle) error
	Resume(ctx context.Context, h Handle) error
	Stop(ctx context.Context, h Handle) error
	SetVolume(ctx context.Context, h Handle, volume float64) error
	Seek(ctx context.Context, h Handle, position time.Duration) error
	Position(h Handle) time.Duration
	// Occupants counts the non-bot members in the bot's voice channel.
	Occupants(guildID string) (int, error)
}

// Resolver turns a descriptor into a playable source. It must be safe for
// concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, d TrackDescriptor) (*Source, error)
}

// PlaylistResolver expands a playlist request into one descriptor per track.
type PlaylistResolver interface {
	Resolver
	IsPlaylist(request string) bool
	ResolvePlaylist(ctx context.Context, request, requestedBy string) ([]TrackDescriptor, error)
}

// Notifier receives playback events. Calls are made without any queue lock
// held.
type Notifier interface {
	TrackStarted(info SessionInfo, track Source)
	TrackEnded(info SessionInfo, track Source, reason EndReason)
	SessionClosed(info SessionInfo, reason CloseReason)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) TrackStarted(SessionInfo, Source)          {}
func (NopNotifier) TrackEnded(SessionInfo, Source, EndReason) {}
func (NopNotifier) SessionClosed(SessionInfo, CloseReason)    {}

// QueueItem is one row of a queue snapshot.
type QueueItem struct {
	Position    int
	ID          uuid.UUID
	Title       string
	Duration    time.Duration
	Request     string
	RequestedBy string
	Resolved    bool
}

// NowPlaying describes the track at the head of the queue.
type NowPlaying struct {
	Track    TrackDescriptor
	Metadata Metadata
	Position time.Duration
	Paused   bool
	Loop     bool
	Volume   float64
	Muted    bool
}
