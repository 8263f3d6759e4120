package correlator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/dispatcher"
	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/pkg/mqtt"
)

const receiptQOS byte = 1

// Correlator relates acknowledgment deliveries back to dispatched commands.
// A match is informational: the pending entry is marked acknowledged but kept
// for inspection; unmatched acknowledgments are logged as unsolicited.
type Correlator struct {
	store          *dispatcher.PendingStore
	mqttClient     mqtt.MQTTClient
	autoAckReceipt bool
	logger         zerolog.Logger
}

// NewCorrelator initializes a Correlator. When autoAckReceipt is enabled,
// deliveries on an ack topic carrying a message_id get a transport-receipt
// reply on the device's downlink topic.
func NewCorrelator(store *dispatcher.PendingStore, mqttClient mqtt.MQTTClient, autoAckReceipt bool, logger zerolog.Logger) *Correlator {
	return &Correlator{
		store:          store,
		mqttClient:     mqttClient,
		autoAckReceipt: autoAckReceipt,
		logger:         logger,
	}
}

// OnAcknowledgment matches an ack delivery against the pending commands.
func (c *Correlator) OnAcknowledgment(deviceID, requestID, status string, raw []byte) {
	if requestID == "" {
		c.logger.Warn().
			Str("device_id", deviceID).
			Str("payload", string(raw)).
			Msg("Acknowledgment without request_id")
		return
	}

	cmd, found, duplicate := c.store.MarkAcknowledged(requestID, time.Now())
	switch {
	case !found:
		c.logger.Warn().
			Str("device_id", deviceID).
			Str("request_id", requestID).
			Str("status", status).
			Msg("Unsolicited acknowledgment")
	case duplicate:
		c.logger.Debug().
			Str("device_id", deviceID).
			Str("request_id", requestID).
			Int("ack_count", cmd.AckCount).
			Msg("Duplicate acknowledgment")
	default:
		c.logger.Info().
			Str("device_id", deviceID).
			Str("request_id", requestID).
			Str("status", status).
			Str("method", cmd.CommandMethod).
			Dur("rtt", time.Since(cmd.SentAt)).
			Msg("Command acknowledged")
	}
}

// AutoAcknowledgeReceipt replies with an ack_receipt envelope confirming
// transport receipt of messageID. It says nothing about execution outcome.
func (c *Correlator) AutoAcknowledgeReceipt(deviceID, messageID string) error {
	if !c.autoAckReceipt || messageID == "" {
		return nil
	}
	if !c.mqttClient.IsConnected() {
		return models.ErrNotConnected
	}

	receipt := models.AckReceipt{
		Type:       models.MessageTypeAckReceipt,
		MessageID:  messageID,
		ReceivedAt: time.Now().Unix(),
		Status:     "processed",
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to serialize ack receipt: %w", err)
	}

	topic := models.DownlinkTopic(deviceID)
	token := c.mqttClient.Publish(topic, receiptQOS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		c.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish ack receipt")
		return fmt.Errorf("%w: %v", models.ErrPublishFailed, err)
	}

	c.logger.Debug().Str("device_id", deviceID).Str("message_id", messageID).Msg("Ack receipt sent")
	return nil
}
