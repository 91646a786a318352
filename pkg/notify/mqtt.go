package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/errors"
	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/mqtt"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
)

// MQTT events published under pancy/music/<guild>/
const (
	EventTrackStart = "trackStart"
	EventTrackEnd   = "trackEnd"
	EventProgress   = "progress"
	EventDisconnect = "disconnect"
)

// MusicState is the playback snapshot sent to the dashboard
type MusicState struct {
	GuildID      string        `json:"guildId"`
	IsPlaying    bool          `json:"isPlaying"`
	IsPaused     bool          `json:"isPaused"`
	Loop         bool          `json:"loop"`
	Muted        bool          `json:"muted"`
	CurrentTrack *TrackState   `json:"currentTrack"`
	Progress     float64       `json:"progress"`
	Volume       int           `json:"volume"`
	Queue        []*TrackState `json:"queue"`
	Reason       string        `json:"reason,omitempty"`
	Timestamp    int64         `json:"timestamp"`
}

// TrackState represents a track in the music state
type TrackState struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist,omitempty"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	URL         string  `json:"url,omitempty"`
	RequestedBy string  `json:"requestedBy"`
}

// Publisher is the part of the MQTT communicator the notifier needs
type Publisher interface {
	Publish(topic string, payload any) error
}

// Sessions looks up live queues; *queue.Registry satisfies it
type Sessions interface {
	Get(guildID string) *queue.GuildQueue
	Guilds() []string
}

// MQTTNotifier publishes queue changes for the dashboard.
type MQTTNotifier struct {
	pub      Publisher
	sessions Sessions
	now      func() time.Time
}

var _ queue.Notifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier creates a notifier. Attach must be called before states
// include the queue.
func NewMQTTNotifier(pub Publisher) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, now: time.Now}
}

// Attach sets the registry used to build snapshots. The registry needs the
// notifier at construction, so the link is made afterwards.
func (n *MQTTNotifier) Attach(sessions Sessions) {
	n.sessions = sessions
}

func topic(guildID, event string) string {
	return fmt.Sprintf("%s%s/%s", mqtt.MusicRoot, guildID, event)
}

func (n *MQTTNotifier) publish(guildID, event string, state MusicState) {
	if n.pub == nil {
		return
	}
	if err := n.pub.Publish(topic(guildID, event), state); err != nil {
		logger.Debug(fmt.Sprintf("[%s] No se pudo publicar %s: %v", guildID, event, err), "Notify")
	}
}

func (n *MQTTNotifier) TrackStarted(info queue.SessionInfo, src queue.Source) {
	state := n.State(info.GuildID)
	if state.CurrentTrack == nil {
		state.CurrentTrack = trackState(src.Descriptor, src.Metadata)
		state.IsPlaying = true
	}
	n.publish(info.GuildID, EventTrackStart, state)
}

func (n *MQTTNotifier) TrackEnded(info queue.SessionInfo, src queue.Source, reason queue.EndReason) {
	state := n.State(info.GuildID)
	state.Reason = string(reason)
	n.publish(info.GuildID, EventTrackEnd, state)
}

func (n *MQTTNotifier) SessionClosed(info queue.SessionInfo, reason queue.CloseReason) {
	n.publish(info.GuildID, EventDisconnect, MusicState{
		GuildID:   info.GuildID,
		Reason:    string(reason),
		Timestamp: n.now().UnixMilli(),
	})
}

// State builds the snapshot of a guild. A guild without a session yields an
// idle state.
func (n *MQTTNotifier) State(guildID string) MusicState {
	var q *queue.GuildQueue
	if n.sessions != nil {
		q = n.sessions.Get(guildID)
	}
	state := Snapshot(guildID, q)
	state.Timestamp = n.now().UnixMilli()
	return state
}

// Snapshot describes q for the dashboard. q may be nil.
func Snapshot(guildID string, q *queue.GuildQueue) MusicState {
	state := MusicState{GuildID: guildID, Timestamp: time.Now().UnixMilli()}
	if q == nil {
		return state
	}

	np, items := q.Snapshot()
	if np == nil {
		state.Volume = int(q.Volume()*100 + 0.5)
		state.Loop = q.Loop()
		state.Muted = q.Muted()
	} else {
		state.Volume = int(np.Volume*100 + 0.5)
		state.Loop = np.Loop
		state.Muted = np.Muted
		state.IsPlaying = true
		state.IsPaused = np.Paused
		state.Progress = np.Position.Seconds()
		state.CurrentTrack = trackState(np.Track, np.Metadata)
		// items[0] is np's entry
		items = items[1:]
	}
	for _, it := range items {
		state.Queue = append(state.Queue, &TrackState{
			ID:          it.ID.String(),
			Title:       it.Title,
			Duration:    it.Duration.Seconds(),
			RequestedBy: it.RequestedBy,
		})
	}
	return state
}

func trackState(d queue.TrackDescriptor, m queue.Metadata) *TrackState {
	title := m.Title
	if title == "" {
		title = d.Request
	}
	return &TrackState{
		ID:          d.ID.String(),
		Title:       title,
		Artist:      m.Artist,
		Duration:    m.Duration.Seconds(),
		Thumbnail:   m.Artwork,
		URL:         m.URL,
		RequestedBy: d.RequestedBy,
	}
}

// RunProgress publishes a progress state for every playing guild each
// interval until ctx is done.
func (n *MQTTNotifier) RunProgress(ctx context.Context, interval time.Duration) {
	defer errors.RecoverMiddleware()()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.publishProgress()
		}
	}
}

func (n *MQTTNotifier) publishProgress() {
	if n.sessions == nil {
		return
	}
	for _, id := range n.sessions.Guilds() {
		state := n.State(id)
		if state.IsPlaying && !state.IsPaused {
			n.publish(id, EventProgress, state)
		}
	}
}
