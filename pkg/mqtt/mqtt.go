// Package mqtt provides MQTT communication capabilities for the bot.
// It publishes playback state for dashboards and serves request/response
// calls used to inspect and control guild queues remotely.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Topic roots shared with the dashboard
const (
	RequestRoot  = "pancy/request/"
	ResponseRoot = "pancy/response/"
	MusicRoot    = "pancy/music/"
)

// ErrNotInitialized is returned when the broker client was never created
var ErrNotInitialized = errors.New("cliente MQTT no inicializado")

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string `json:"correlationId"`
	Data          any    `json:"data"`
	Error         string `json:"error,omitempty"`
}

// RequestHandler answers a request. topic has the request root stripped.
type RequestHandler func(topic string, payload json.RawMessage) (any, error)

type route struct {
	pattern string
	handler RequestHandler
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client   paho.Client
	clientID string

	mu      sync.RWMutex
	waiting map[string]chan MqttResponse
	routes  []route

	// publish sends raw bytes; swapped out in tests
	publish func(topic string, data []byte) error
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(host, port, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(host, port, username, password, clientID)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

func newCommunicator(clientID string) *MqttCommunicator {
	return &MqttCommunicator{
		clientID: clientID,
		waiting:  make(map[string]chan MqttResponse),
	}
}

// NewMqttCommunicator creates a new MQTT communicator
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := newCommunicator(clientID)

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
			mc.resubscribe()
		}).
		SetConnectionLostHandler(func(c paho.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = paho.NewClient(opts)
	mc.publish = func(topic string, data []byte) error {
		return await(mc.client.Publish(topic, 0, false, data))
	}

	if err := await(mc.client.Connect()); err != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", err), "MQTT")
	}

	return mc
}

// await blocks until the broker acknowledges token
func await(token paho.Token) error {
	token.Wait()
	return token.Error()
}

// responseTopic is where the answer to a request is published
func responseTopic(topic, correlationID string) string {
	return ResponseRoot + topic + "/" + correlationID
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if !mc.IsConnected() {
		logger.Debug("El cliente MQTT ya estaba desconectado", "MQTT")
		return
	}
	mc.client.Disconnect(250)
	logger.System("Conexión MQTT cerrada", "MQTT")
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends a message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("payload inválido para %s: %w", topic, err)
	}
	if mc.publish == nil {
		return ErrNotInitialized
	}
	return mc.publish(topic, data)
}

// Request sends a request and waits for a response
func (mc *MqttCommunicator) Request(topic string, payload any, timeout time.Duration) (any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload inválido para %s: %w", topic, err)
	}

	id := uuid.NewString()
	replies := make(chan MqttResponse, 1)
	mc.mu.Lock()
	mc.waiting[id] = replies
	mc.mu.Unlock()

	replyTopic := responseTopic(topic, id)
	defer func() {
		mc.mu.Lock()
		delete(mc.waiting, id)
		mc.mu.Unlock()
		_ = mc.Unsubscribe(replyTopic)
	}()

	if err := mc.Subscribe(replyTopic, func(_ string, data []byte) { mc.deliverResponse(data) }); err != nil {
		return nil, err
	}
	if err := mc.Publish(RequestRoot+topic, MqttRequest{CorrelationID: id, Payload: raw}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-replies:
		if reply.Error != "" {
			return nil, errors.New(reply.Error)
		}
		return reply.Data, nil
	case <-timer.C:
		return nil, fmt.Errorf("sin respuesta de %s tras %s", topic, timeout)
	}
}

func (mc *MqttCommunicator) deliverResponse(data []byte) {
	var response MqttResponse
	if err := json.Unmarshal(data, &response); err != nil {
		logger.Warn(fmt.Sprintf("Respuesta MQTT ilegible: %v", err), "MQTT")
		return
	}
	mc.mu.RLock()
	ch, ok := mc.waiting[response.CorrelationID]
	mc.mu.RUnlock()
	if ok {
		select {
		case ch <- response:
		default:
		}
	}
}

// On registers a handler for request topics matching pattern. Patterns may
// use the MQTT wildcards '+' and '#'.
func (mc *MqttCommunicator) On(pattern string, handler RequestHandler) {
	mc.mu.Lock()
	mc.routes = append(mc.routes, route{pattern: pattern, handler: handler})
	mc.mu.Unlock()

	if err := mc.subscribeRoute(pattern); err != nil {
		logger.Error(fmt.Sprintf("No se pudo suscribir a %s: %v", RequestRoot+pattern, err), "MQTT")
	}
}

func (mc *MqttCommunicator) subscribeRoute(pattern string) error {
	if mc.client == nil {
		return nil
	}
	return mc.Subscribe(RequestRoot+pattern, func(topic string, data []byte) {
		mc.handleRequest(topic, data)
	})
}

// resubscribe restores request routes after a reconnect.
func (mc *MqttCommunicator) resubscribe() {
	mc.mu.RLock()
	patterns := make([]string, 0, len(mc.routes))
	for _, r := range mc.routes {
		patterns = append(patterns, r.pattern)
	}
	mc.mu.RUnlock()

	for _, p := range patterns {
		if err := mc.subscribeRoute(p); err != nil {
			logger.Error(fmt.Sprintf("No se pudo restaurar la suscripción a %s: %v", RequestRoot+p, err), "MQTT")
		}
	}
}

// handleRequest runs the first matching handler and publishes its answer.
func (mc *MqttCommunicator) handleRequest(fullTopic string, data []byte) {
	var request MqttRequest
	if err := json.Unmarshal(data, &request); err != nil {
		logger.Warn(fmt.Sprintf("Petición MQTT ilegible en %s: %v", fullTopic, err), "MQTT")
		return
	}

	topic := strings.TrimPrefix(fullTopic, RequestRoot)
	handler := mc.match(topic)
	if handler == nil {
		logger.Debug(fmt.Sprintf("Petición MQTT sin manejador: %s", topic), "MQTT")
		return
	}

	response := MqttResponse{CorrelationID: request.CorrelationID}
	if result, err := handler(topic, request.Payload); err != nil {
		response.Error = err.Error()
	} else {
		response.Data = result
	}

	if err := mc.Publish(responseTopic(topic, request.CorrelationID), response); err != nil {
		logger.Error(fmt.Sprintf("Error publicando respuesta MQTT: %v", err), "MQTT")
	}
}

func (mc *MqttCommunicator) match(topic string) RequestHandler {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	for _, r := range mc.routes {
		if topicMatch(r.pattern, topic) {
			return r.handler
		}
	}
	return nil
}

// Subscribe subscribes to a topic with a message handler
func (mc *MqttCommunicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	if mc.client == nil {
		return ErrNotInitialized
	}
	return await(mc.client.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	}))
}

// Unsubscribe unsubscribes from a topic
func (mc *MqttCommunicator) Unsubscribe(topic string) error {
	if mc.client == nil {
		return nil
	}
	return await(mc.client.Unsubscribe(topic))
}

// topicMatch applies MQTT wildcard rules: '+' is one level, a trailing '#'
// is any number of levels.
func topicMatch(pattern, topic string) bool {
	levels := strings.Split(topic, "/")
	for i, want := range strings.Split(pattern, "/") {
		switch {
		case want == "#":
			return true
		case i >= len(levels):
			return false
		case want != "+" && want != levels[i]:
			return false
		}
	}
	return strings.Count(pattern, "/") == len(levels)-1
}
