package lavalink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	clientName        = "PancyMusic-Go/1.0"
	minReconnectDelay = 5 * time.Second
	maxReconnectDelay = time.Minute
)

// Node is one Lavalink server: a websocket for events plus its REST API
type Node struct {
	config     NodeConfig
	client     *Client
	httpClient *http.Client

	mu        sync.RWMutex
	conn      *websocket.Conn
	sessionID string
	connected bool

	stop     chan struct{}
	stopOnce sync.Once
}

func newNode(cfg NodeConfig, c *Client) *Node {
	return &Node{
		config:     cfg,
		client:     c,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		stop:       make(chan struct{}),
	}
}

func (n *Node) baseURL(ws bool) string {
	scheme := "http"
	if ws {
		scheme = "ws"
	}
	if n.config.Secure {
		scheme += "s"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, n.config.Host, n.config.Port)
}

// ready reports whether the node has an open websocket and a session id.
func (n *Node) ready() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.connected && n.sessionID != ""
}

func (n *Node) session() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sessionID
}

// run keeps the websocket open until close is called. Failed dials back off
// up to maxReconnectDelay; a session that was up resets the delay.
func (n *Node) run() {
	delay := minReconnectDelay
	for {
		conn, err := n.dial()
		switch {
		case errors.Is(err, ErrNoNode):
			return
		case err == nil:
			delay = minReconnectDelay
			n.readMessages(conn)
			n.dropConn()
		default:
			logger.Error(fmt.Sprintf("Error al conectar con Lavalink %s: %v", n.config.Name, err), "Lavalink")
		}

		select {
		case <-n.stop:
			return
		case <-time.After(delay):
		}
		if err != nil {
			delay = min(delay*2, maxReconnectDelay)
		}
		logger.Info(fmt.Sprintf("Reintentando conexión con Lavalink %s...", n.config.Name), "Lavalink")
	}
}

func (n *Node) dial() (*websocket.Conn, error) {
	headers := http.Header{}
	headers.Set("Authorization", n.config.Password)
	headers.Set("User-Id", n.client.userID())
	headers.Set("Client-Name", clientName)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(n.baseURL(true)+"/v4/websocket", headers)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	select {
	case <-n.stop:
		n.mu.Unlock()
		conn.Close()
		return nil, ErrNoNode
	default:
	}
	n.conn = conn
	n.connected = true
	n.mu.Unlock()

	logger.Success(fmt.Sprintf("Conectado con Lavalink server: %s", n.config.Name), "Lavalink")
	return conn, nil
}

// dropConn forgets the socket and the session bound to it
func (n *Node) dropConn() {
	n.mu.Lock()
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	n.connected = false
	n.sessionID = ""
	n.mu.Unlock()

	select {
	case <-n.stop:
	default:
		logger.Warn(fmt.Sprintf("Desconectado de Lavalink: %s", n.config.Name), "Lavalink")
	}
}

// readMessages dispatches websocket messages until the socket fails
func (n *Node) readMessages(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debug(fmt.Sprintf("Websocket de Lavalink cerrado: %v", err), "Lavalink")
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug(fmt.Sprintf("Mensaje de Lavalink ilegible: %v", err), "Lavalink")
			continue
		}
		n.handleMessage(&msg)
	}
}

// message is the union of every op the node sends over the websocket.
type message struct {
	Op        string       `json:"op"`
	Type      string       `json:"type"`
	GuildID   string       `json:"guildId"`
	SessionID string       `json:"sessionId"`
	Resumed   bool         `json:"resumed"`
	State     *playerState `json:"state"`
	Track     *Track       `json:"track"`
	Reason    string       `json:"reason"`
	Exception *Exception   `json:"exception"`
	Threshold int64        `json:"thresholdMs"`
	Code      int          `json:"code"`
	ByRemote  bool         `json:"byRemote"`
}

type playerState struct {
	Time      int64 `json:"time"`
	Position  int64 `json:"position"`
	Connected bool  `json:"connected"`
	Ping      int   `json:"ping"`
}

// Exception is the error object Lavalink attaches to failed loads and track
// exceptions.
type Exception struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

// handleMessage processes incoming Lavalink messages
func (n *Node) handleMessage(msg *message) {
	switch msg.Op {
	case "ready":
		n.mu.Lock()
		n.sessionID = msg.SessionID
		n.mu.Unlock()
		logger.Info(fmt.Sprintf("Lavalink %s listo (sesión %s, reanudada: %v)", n.config.Name, msg.SessionID, msg.Resumed), "Lavalink")
	case "playerUpdate":
		if msg.State != nil {
			n.client.updatePosition(msg.GuildID, msg.State.Position)
		}
	case "event":
		n.handleEvent(msg)
	case "stats":
	}
}

// handleEvent handles Lavalink events
func (n *Node) handleEvent(msg *message) {
	switch msg.Type {
	case "TrackStartEvent":
		if msg.Track != nil {
			logger.Debug(fmt.Sprintf("[%s] Lavalink empezó %s", msg.GuildID, msg.Track.Info.Title), "Lavalink")
		}
	case "TrackEndEvent":
		n.client.handleTrackEnd(msg.GuildID, msg.Track, msg.Reason)
	case "TrackExceptionEvent":
		reason := "desconocido"
		if msg.Exception != nil {
			reason = msg.Exception.Message
		}
		logger.Error(fmt.Sprintf("[%s] Excepción en la pista: %s", msg.GuildID, reason), "Lavalink")
	case "TrackStuckEvent":
		logger.Warn(fmt.Sprintf("[%s] Pista atascada durante %dms, deteniendo", msg.GuildID, msg.Threshold), "Lavalink")
		n.client.handleTrackStuck(msg.GuildID, msg.Track)
	case "WebSocketClosedEvent":
		logger.Warn(fmt.Sprintf("[%s] Conexión de voz cerrada (código %d, remoto: %v)", msg.GuildID, msg.Code, msg.ByRemote), "Lavalink")
	}
}

// close stops run and closes the socket, which ends readMessages
func (n *Node) close() {
	n.stopOnce.Do(func() { close(n.stop) })
	n.mu.Lock()
	if n.conn != nil {
		n.conn.Close()
	}
	n.mu.Unlock()
}

// restError is the body Lavalink returns on non-2xx responses.
type restError struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// do performs an authenticated REST call. body and out may be nil.
func (n *Node) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseURL(false)+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", n.config.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var re restError
		if err := json.NewDecoder(resp.Body).Decode(&re); err == nil && re.Message != "" {
			return fmt.Errorf("lavalink %s %s: %d %s", method, path, resp.StatusCode, re.Message)
		}
		return fmt.Errorf("lavalink %s %s: %d", method, path, resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
