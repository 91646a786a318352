// Package lavalink provides a Lavalink v4 client for music playback.
// It keeps the websocket to every node open for events, drives players over
// the REST API and forwards Discord voice updates to the node.
package lavalink

import (
	"errors"
	"sync"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/queue"
	"github.com/bwmarrin/discordgo"
)

// Volume constants, in Lavalink units
const (
	MinVolume = 0
	MaxVolume = 1000
)

var (
	ErrNoNode      = errors.New("no hay nodos de Lavalink disponibles")
	ErrNoPlayer    = errors.New("no hay un reproductor para este servidor")
	ErrInvalidData = errors.New("respuesta de Lavalink inválida")
)

// NodeConfig holds configuration for a Lavalink node
type NodeConfig struct {
	Name     string
	Host     string
	Port     int
	Password string
	Secure   bool
}

// TrackInfo contains information about a track
type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	ISRC       string `json:"isrc"`
	SourceName string `json:"sourceName"`
}

// Track represents a playable track
type Track struct {
	Encoded  string    `json:"encoded"`
	Info     TrackInfo `json:"info"`
	UserData *UserData `json:"userData,omitempty"`
}

// UserData is attached to every track we play so the node echoes it back in
// its events.
type UserData struct {
	TrackID string `json:"trackId"`
	Handle  uint64 `json:"handle"`
}

// voiceGateway is the part of the Discord session used to move the bot
// between voice channels.
type voiceGateway interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

// Client manages the nodes and the per-guild players. It implements
// queue.Driver.
type Client struct {
	session *discordgo.Session
	gateway voiceGateway
	state   *discordgo.State
	nodes   []*Node

	mu      sync.RWMutex
	players map[string]*player
	handles map[uint64]*Handle
	serial  uint64

	events chan queue.TrackEnded
}

var _ queue.Driver = (*Client)(nil)

var (
	lavalinkClient *Client
	once           sync.Once
)

// Init initializes the global Lavalink client
func Init(session *discordgo.Session, nodeConfigs []NodeConfig) *Client {
	once.Do(func() {
		lavalinkClient = NewClient(session, nodeConfigs)
	})
	return lavalinkClient
}

// Get returns the global Lavalink client
func Get() *Client {
	return lavalinkClient
}

// NewClient creates a client for the given nodes. Nothing is dialed until
// Connect is called.
func NewClient(session *discordgo.Session, nodeConfigs []NodeConfig) *Client {
	logger.Debug("Inicializando cliente de Lavalink", "Lavalink")

	c := &Client{
		session: session,
		players: make(map[string]*player),
		handles: make(map[uint64]*Handle),
		events:  make(chan queue.TrackEnded, 64),
	}
	if session != nil {
		c.gateway = session
		c.state = session.State
		session.AddHandler(c.voiceStateUpdate)
		session.AddHandler(c.voiceServerUpdate)
	}

	for _, cfg := range nodeConfigs {
		c.nodes = append(c.nodes, newNode(cfg, c))
	}
	return c
}

// Events streams the end of every handle started by this client.
func (c *Client) Events() <-chan queue.TrackEnded {
	return c.events
}

// Connect connects to all Lavalink nodes
func (c *Client) Connect() error {
	if len(c.nodes) == 0 {
		return ErrNoNode
	}
	for _, node := range c.nodes {
		go node.run()
	}
	return nil
}

// Disconnect disconnects from all nodes
func (c *Client) Disconnect() {
	for _, node := range c.nodes {
		node.close()
	}
	logger.System("Cliente de Lavalink desconectado", "Lavalink")
}

// node returns the first node with an open session.
func (c *Client) node() (*Node, error) {
	for _, n := range c.nodes {
		if n.ready() {
			return n, nil
		}
	}
	return nil, ErrNoNode
}

// Stats reports node and player counts for status pages.
func (c *Client) Stats() (connected, total, players int) {
	for _, n := range c.nodes {
		if n.ready() {
			connected++
		}
	}
	c.mu.RLock()
	players = len(c.players)
	c.mu.RUnlock()
	return connected, len(c.nodes), players
}

func (c *Client) userID() string {
	if c.state != nil && c.state.User != nil {
		return c.state.User.ID
	}
	return ""
}

// emit blocks the node reader until the registry takes the event.
func (c *Client) emit(ev queue.TrackEnded) {
	c.events <- ev
}
