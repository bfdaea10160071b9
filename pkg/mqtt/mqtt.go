// Package mqtt publishes modlog events to an MQTT broker and answers
// request/response queries about infractions and histories.
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// transport is the slice of a broker connection the communicator needs
type transport interface {
	publish(topic string, payload []byte) error
	subscribe(topic string, handler func(topic string, payload []byte)) error
	unsubscribe(topic string) error
	connected() bool
	close()
}

type pahoTransport struct {
	client paho.Client
}

func (t *pahoTransport) publish(topic string, payload []byte) error {
	token := t.client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := t.client.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) unsubscribe(topic string) error {
	token := t.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) connected() bool { return t.client.IsConnected() }
func (t *pahoTransport) close()          { t.client.Disconnect(250) }

// Options configures the broker connection
type Options struct {
	Broker   string
	Username string
	Password string
	ClientID string
	// Prefix roots every topic, e.g. "modlog"
	Prefix string
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	transport        transport
	prefix           string
	responseHandlers map[string]func(MqttResponse)
	mu               sync.RWMutex
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(opts Options) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(opts)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator connects to the broker. A failed first connection is
// logged and retried in the background.
func NewMqttCommunicator(opts Options) *MqttCommunicator {
	uniqueID := fmt.Sprintf("%s_%s", opts.ClientID, uuid.New().String())

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(uniqueID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", opts.ClientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c paho.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	client := paho.NewClient(clientOpts)
	token := client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return newCommunicator(&pahoTransport{client: client}, opts.Prefix)
}

func newCommunicator(t transport, prefix string) *MqttCommunicator {
	if prefix == "" {
		prefix = "modlog"
	}
	return &MqttCommunicator{
		transport:        t,
		prefix:           strings.TrimSuffix(prefix, "/"),
		responseHandlers: make(map[string]func(MqttResponse)),
	}
}

// Prefix returns the topic root
func (mc *MqttCommunicator) Prefix() string {
	return mc.prefix
}

func (mc *MqttCommunicator) requestTopic(topic string) string {
	return mc.prefix + "/request/" + topic
}

func (mc *MqttCommunicator) responseTopic(topic, correlationID string) string {
	return mc.prefix + "/response/" + topic + "/" + correlationID
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.IsConnected() {
		mc.transport.close()
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.transport != nil && mc.transport.connected()
}

// Publish sends a JSON message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return mc.transport.publish(topic, data)
}

// Request sends a request and waits for a response
func (mc *MqttCommunicator) Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	correlationID := uuid.New().String()
	responseTopic := mc.responseTopic(topic, correlationID)

	responseChan := make(chan MqttResponse, 1)

	mc.mu.Lock()
	mc.responseHandlers[correlationID] = func(response MqttResponse) {
		select {
		case responseChan <- response:
		default:
		}
	}
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.responseHandlers, correlationID)
		mc.mu.Unlock()
		mc.transport.unsubscribe(responseTopic)
	}()

	err := mc.transport.subscribe(responseTopic, func(_ string, data []byte) {
		var response MqttResponse
		if err := json.Unmarshal(data, &response); err != nil {
			logger.Warn(fmt.Sprintf("Respuesta MQTT inválida: %v", err), "MQTT")
			return
		}

		mc.mu.RLock()
		handler, exists := mc.responseHandlers[response.CorrelationID]
		mc.mu.RUnlock()

		if exists {
			handler(response)
		}
	})
	if err != nil {
		return nil, err
	}

	request := MqttRequest{CorrelationID: correlationID, Payload: payload}
	if err := mc.Publish(mc.requestTopic(topic), request); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return nil, fmt.Errorf("%s", response.Error)
		}
		return response.Data, nil
	case <-timer.C:
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// RequestHandler answers one request. The payload carries "_topic" with the
// topic the request arrived on.
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On registers a handler for a request topic
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) error {
	topic := mc.requestTopic(requestTopic)
	root := mc.requestTopic("")

	err := mc.transport.subscribe(topic, func(received string, data []byte) {
		var request MqttRequest
		if err := json.Unmarshal(data, &request); err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}

		actualTopic := strings.TrimPrefix(received, root)

		payloadMap := make(map[string]interface{})
		if pm, ok := request.Payload.(map[string]interface{}); ok {
			payloadMap = pm
		}
		payloadMap["_topic"] = actualTopic

		response := MqttResponse{CorrelationID: request.CorrelationID}
		if result, err := callback(payloadMap); err != nil {
			response.Error = err.Error()
		} else {
			response.Data = result
		}

		if err := mc.Publish(mc.responseTopic(actualTopic, request.CorrelationID), response); err != nil {
			logger.Error(fmt.Sprintf("Error enviando respuesta MQTT: %v", err), "MQTT")
		}
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", topic, err), "MQTT")
	}
	return err
}

// Subscribe subscribes to a topic with a message handler
func (mc *MqttCommunicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	return mc.transport.subscribe(topic, handler)
}

// Unsubscribe unsubscribes from a topic
func (mc *MqttCommunicator) Unsubscribe(topic string) error {
	return mc.transport.unsubscribe(topic)
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range patternParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}
	return len(patternParts) == len(topicParts)
}
