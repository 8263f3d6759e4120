package dispatcher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/pkg/mqtt"
)

// Dispatcher builds command envelopes and publishes them to device downlink
// topics. It is fire-and-forget: a successful return means the transport
// accepted the publish, not that the device executed anything.
type Dispatcher struct {
	mqttClient mqtt.MQTTClient
	store      *PendingStore
	qos        byte
	logger     zerolog.Logger
}

// NewDispatcher initializes a Dispatcher publishing at the given QoS.
func NewDispatcher(mqttClient mqtt.MQTTClient, store *PendingStore, qos byte, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mqttClient: mqttClient,
		store:      store,
		qos:        qos,
		logger:     logger,
	}
}

// newCorrelationID builds a process-unique, unguessable request identifier.
func newCorrelationID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("req_%d_%s", now.Unix(), suffix)
}

// Dispatch publishes a single command to the device's downlink topic and
// records it as pending. Returns the correlation identifier on success.
func (d *Dispatcher) Dispatch(deviceID, name, method string, parameters map[string]interface{}) (string, error) {
	return d.publishCommand(deviceID, models.DownlinkTopic(deviceID), name, method, parameters)
}

// DispatchBroadcast publishes a command to every device at once.
func (d *Dispatcher) DispatchBroadcast(name, method string, parameters map[string]interface{}) (string, error) {
	return d.publishCommand("broadcast", models.BroadcastTopic, name, method, parameters)
}

func (d *Dispatcher) publishCommand(deviceID, topic, name, method string, parameters map[string]interface{}) (string, error) {
	if !d.mqttClient.IsConnected() {
		return "", models.ErrNotConnected
	}

	now := time.Now()
	correlationID := newCorrelationID(now)

	envelope := models.CommandEnvelope{
		Type:      models.MessageTypeIoT,
		Commands:  []models.Command{{Name: name, Method: method, Parameters: parameters}},
		RequestID: correlationID,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to serialize command envelope: %w", err)
	}

	d.logger.Info().
		Str("topic", topic).
		Str("request_id", correlationID).
		Str("name", name).
		Str("method", method).
		Msg("Dispatching command")

	token := d.mqttClient.Publish(topic, d.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		d.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish command")
		return "", fmt.Errorf("%w: %v", models.ErrPublishFailed, err)
	}

	d.store.Add(models.PendingCommand{
		CorrelationID:   correlationID,
		DeviceID:        deviceID,
		CommandName:     name,
		CommandMethod:   method,
		Parameters:      parameters,
		SentAt:          now,
		DeliveryQuality: d.qos,
	})

	return correlationID, nil
}
