package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosuri/uitable"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/dispatcher"
	"github.com/xiaoqiao/device-tools/internal/facade"
	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/internal/router"
	"github.com/xiaoqiao/device-tools/internal/utils"
	"github.com/xiaoqiao/device-tools/pkg/mqtt"
)

// Console is the broker debugging tool: it watches device topics, publishes
// canned or raw payloads, and renders the liveness view the router builds up.
type Console struct {
	mqttClient mqtt.MQTTClient
	dispatcher *dispatcher.Dispatcher
	facade     *facade.Facade
	router     *router.Router
	out        io.Writer
	logger     zerolog.Logger
}

// NewConsole initializes the console over an already connected client.
func NewConsole(mqttClient mqtt.MQTTClient, disp *dispatcher.Dispatcher, fac *facade.Facade, rtr *router.Router, out io.Writer, logger zerolog.Logger) *Console {
	return &Console{
		mqttClient: mqttClient,
		dispatcher: disp,
		facade:     fac,
		router:     rtr,
		out:        out,
		logger:     logger,
	}
}

// DeviceTopics expands a device identifier to its four channels.
func DeviceTopics(deviceID string) []string {
	return []string{
		models.DownlinkTopic(deviceID),
		models.UplinkTopic(deviceID),
		models.AckTopic(deviceID),
		models.StatusTopic(deviceID),
	}
}

// Watch subscribes to the given topics, printing every delivery until the
// context is cancelled. The router runs alongside so the device table keeps
// tracking liveness and acknowledgments while watching.
func (c *Console) Watch(ctx context.Context, topics []string, summaryEvery time.Duration) error {
	if err := c.router.Start(); err != nil {
		return err
	}
	defer func() {
		if err := c.router.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to stop router")
		}
	}()

	for _, topic := range topics {
		token := c.mqttClient.Subscribe(topic, 0, c.printMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		fmt.Fprintf(c.out, "subscribed: %s\n", topic)
	}
	defer func() {
		token := c.mqttClient.Unsubscribe(topics...)
		token.Wait()
	}()

	var summary <-chan time.Time
	if summaryEvery > 0 {
		ticker := time.NewTicker(summaryEvery)
		defer ticker.Stop()
		summary = ticker.C
	}

	for {
		select {
		case <-summary:
			c.PrintDeviceTable()
		case <-ctx.Done():
			return nil
		}
	}
}

// printMessage runs on the network goroutine; it only formats and writes.
func (c *Console) printMessage(client MQTT.Client, msg MQTT.Message) {
	timestamp := time.Now().Format("15:04:05")

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, msg.Payload(), "", "  "); err != nil {
		pretty.Write(msg.Payload())
	}

	fmt.Fprintf(c.out, "[%s] %s\n%s\n%s\n", timestamp, msg.Topic(), pretty.String(), divider)
}

const divider = "--------------------------------------------------------------------------------"

// PublishTemplate sends a named template to each target device. Command
// templates go through the dispatcher so they carry a request_id and land in
// the pending log; raw templates are published directly at QoS 1. Devices are
// fanned out over a small worker pool.
func (c *Console) PublishTemplate(name string, deviceIDs []string, broadcast bool) error {
	tpl, ok := LookupTemplate(name)
	if !ok {
		return fmt.Errorf("%w: unknown template %q", models.ErrInvalidArgument, name)
	}

	if broadcast {
		return c.publishTemplateTo(tpl, "", true)
	}
	if len(deviceIDs) == 0 {
		return fmt.Errorf("%w: no target device", models.ErrInvalidArgument)
	}

	errs := make(chan error, len(deviceIDs))
	pool := utils.NewWorkerPool(4)
	for _, deviceID := range deviceIDs {
		id := deviceID
		pool.Submit(func() {
			errs <- c.publishTemplateTo(tpl, id, false)
		})
	}
	pool.Shutdown()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) publishTemplateTo(tpl Template, deviceID string, broadcast bool) error {
	if tpl.IsCommand() {
		var (
			requestID string
			err       error
		)
		if broadcast {
			requestID, err = c.dispatcher.DispatchBroadcast(tpl.Command, tpl.Method, tpl.Params)
		} else {
			requestID, err = c.dispatcher.Dispatch(deviceID, tpl.Command, tpl.Method, tpl.Params)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "dispatched %s (request_id=%s)\n", tpl.Name, requestID)
		return nil
	}

	topic := models.BroadcastTopic
	if !broadcast {
		topic = models.DownlinkTopic(deviceID)
	}
	return c.PublishRaw(topic, tpl.Params, 1)
}

// PublishRaw publishes an arbitrary JSON payload.
func (c *Console) PublishRaw(topic string, payload interface{}, qos byte) error {
	if !c.mqttClient.IsConnected() {
		return models.ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	token := c.mqttClient.Publish(topic, qos, false, data)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPublishFailed, err)
	}

	fmt.Fprintf(c.out, "published to %s\n", topic)
	return nil
}

// PrintDeviceTable renders the current liveness view of every known device.
func (c *Console) PrintDeviceTable() {
	devices := c.facade.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "no devices observed yet")
		return
	}

	now := time.Now()
	table := uitable.New()
	table.AddRow("DEVICE", "LIVE", "STATE", "REASON", "ONLINE#", "OFFLINE#", "LAST HEARTBEAT")
	for _, d := range devices {
		status := c.facade.GetDeviceStatus(d.DeviceID, now)
		lastHeartbeat := "-"
		if d.LastHeartbeatAt != nil {
			lastHeartbeat = d.LastHeartbeatAt.Format(time.RFC3339)
		}
		table.AddRow(
			d.DeviceID,
			fmt.Sprintf("%t", status.HeartbeatLive),
			string(d.ConnectionState),
			string(d.OfflineReason),
			fmt.Sprintf("%d", d.OnlineTransitions),
			fmt.Sprintf("%d", d.OfflineTransitions),
			lastHeartbeat,
		)
	}
	fmt.Fprintln(c.out, table.String())
}

// PrintTemplates lists the template library.
func (c *Console) PrintTemplates() {
	table := uitable.New()
	table.AddRow("NAME", "CATEGORY", "TARGET")
	for _, t := range TemplateNames() {
		target := "raw payload"
		if t.IsCommand() {
			target = t.Command + "." + t.Method
		}
		table.AddRow(t.Name, t.Category, target)
	}
	fmt.Fprintln(c.out, table.String())
}
