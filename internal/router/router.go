package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/correlator"
	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/internal/tracker"
	"github.com/xiaoqiao/device-tools/pkg/mqtt"
)

// Subscription QoS levels: commands and acks ride the exactly-once tier,
// heartbeats are self-correcting and ride at-most-once, status is at-least-once.
const (
	uplinkQOS byte = 0
	ackQOS    byte = 2
	statusQOS byte = 1
)

// Topic patterns covering every device.
const (
	uplinkPattern = "devices/+/uplink"
	ackPattern    = "devices/+/ack"
	statusPattern = "devices/+/status"
)

type delivery struct {
	topic   string
	payload []byte
	at      time.Time
}

// Router subscribes to the device topic space and moves deliveries from the
// transport's network loop into a bounded queue drained by one consumer
// goroutine. The network callback never takes domain locks; the single
// consumer preserves per-device delivery order.
type Router struct {
	mqttClient mqtt.MQTTClient
	tracker    *tracker.Tracker
	correlator *correlator.Correlator
	queueSize  int
	logger     zerolog.Logger

	queue  chan delivery
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRouter initializes a Router with the given queue bound.
func NewRouter(mqttClient mqtt.MQTTClient, trk *tracker.Tracker, corr *correlator.Correlator, queueSize int, logger zerolog.Logger) *Router {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Router{
		mqttClient: mqttClient,
		tracker:    trk,
		correlator: corr,
		queueSize:  queueSize,
		logger:     logger,
	}
}

// Start subscribes to the device topics and launches the consumer loop.
func (r *Router) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx != nil {
		r.logger.Warn().Msg("Router is already running")
		return errors.New("router is already running")
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.queue = make(chan delivery, r.queueSize)

	subscriptions := []struct {
		pattern string
		qos     byte
	}{
		{uplinkPattern, uplinkQOS},
		{ackPattern, ackQOS},
		{statusPattern, statusQOS},
	}

	for _, sub := range subscriptions {
		token := r.mqttClient.Subscribe(sub.pattern, sub.qos, r.enqueue)
		token.Wait()
		if err := token.Error(); err != nil {
			r.logger.Error().Err(err).Str("topic", sub.pattern).Msg("Failed to subscribe")
			r.cancel()
			r.ctx = nil
			r.cancel = nil
			return err
		}
		r.logger.Info().Str("topic", sub.pattern).Uint8("qos", sub.qos).Msg("Subscribed")
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consume()
	}()

	r.logger.Info().Msg("Router started successfully")
	return nil
}

// Stop unsubscribes and drains the consumer.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil {
		r.logger.Warn().Msg("Router is not running")
		return errors.New("router is not running")
	}

	token := r.mqttClient.Unsubscribe(uplinkPattern, ackPattern, statusPattern)
	token.Wait()
	if err := token.Error(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to unsubscribe from device topics")
	}

	r.cancel()
	r.wg.Wait()

	r.ctx = nil
	r.cancel = nil

	r.logger.Info().Msg("Router stopped successfully")
	return nil
}

// enqueue runs on the transport's network goroutine and must not block: when
// the queue is full the delivery is dropped and counted against the log.
func (r *Router) enqueue(client MQTT.Client, msg MQTT.Message) {
	d := delivery{topic: msg.Topic(), payload: msg.Payload(), at: time.Now()}
	select {
	case r.queue <- d:
	default:
		r.logger.Warn().Str("topic", d.topic).Msg("Delivery queue full, message dropped")
	}
}

// consume drains the queue until cancelled.
func (r *Router) consume() {
	for {
		select {
		case d := <-r.queue:
			r.route(d)
		case <-r.ctx.Done():
			return
		}
	}
}

// route parses the topic and payload and hands the delivery to the tracker or
// correlator. Malformed payloads are logged and skipped, never fatal.
func (r *Router) route(d delivery) {
	deviceID, channel, ok := models.ParseDeviceTopic(d.topic)
	if !ok {
		r.logger.Debug().Str("topic", d.topic).Msg("Delivery outside device topic space")
		return
	}

	switch channel {
	case models.ChannelUplink:
		r.routeUplink(deviceID, d)
	case models.ChannelAck:
		r.routeAck(deviceID, d)
	case models.ChannelStatus:
		r.routeStatus(deviceID, d)
	default:
		r.logger.Debug().Str("topic", d.topic).Msg("Unhandled device channel")
	}
}

func (r *Router) routeUplink(deviceID string, d delivery) {
	var telemetry models.Telemetry
	if err := json.Unmarshal(d.payload, &telemetry); err != nil {
		r.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Malformed uplink payload")
		return
	}
	if telemetry.Type != models.MessageTypeTelemetry {
		r.logger.Debug().Str("device_id", deviceID).Str("type", telemetry.Type).Msg("Non-telemetry uplink ignored")
		return
	}
	r.tracker.RecordHeartbeat(deviceID, d.at)
}

func (r *Router) routeAck(deviceID string, d delivery) {
	var ack models.Acknowledgment
	if err := json.Unmarshal(d.payload, &ack); err != nil {
		r.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Malformed ack payload")
		return
	}

	if ack.Type == models.MessageTypeAck || ack.RequestID != "" {
		r.correlator.OnAcknowledgment(deviceID, ack.RequestID, ack.Status, d.payload)
	}

	if ack.MessageID != "" {
		if err := r.correlator.AutoAcknowledgeReceipt(deviceID, ack.MessageID); err != nil {
			r.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Failed to send ack receipt")
		}
	}
}

func (r *Router) routeStatus(deviceID string, d delivery) {
	var status models.StatusMessage
	if err := json.Unmarshal(d.payload, &status); err != nil {
		r.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Malformed status payload")
		return
	}
	r.tracker.RecordStatus(deviceID, status.Online, status.Reason, d.at)
}
