package facade

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/internal/tracker"
	"github.com/xiaoqiao/device-tools/pkg/mqtt"
)

// Facade exposes read-only liveness projections to the HTTP and console
// layers. Dispatch eligibility requires heartbeat freshness and a live
// transport; the status-machine state is reported alongside but deliberately
// not required, since a broker restart can leave it stale while heartbeats
// keep proving the device reachable.
type Facade struct {
	tracker            *tracker.Tracker
	mqttClient         mqtt.MQTTClient
	heartbeatThreshold time.Duration
	logger             zerolog.Logger
}

// NewFacade initializes a Facade with the configured heartbeat window.
func NewFacade(trk *tracker.Tracker, mqttClient mqtt.MQTTClient, heartbeatThreshold time.Duration, logger zerolog.Logger) *Facade {
	return &Facade{
		tracker:            trk,
		mqttClient:         mqttClient,
		heartbeatThreshold: heartbeatThreshold,
		logger:             logger,
	}
}

// GetDeviceStatus projects the current liveness view of one device. Devices
// never observed yield the offline defaults rather than an error.
func (f *Facade) GetDeviceStatus(deviceID string, now time.Time) models.DeviceStatus {
	connected := f.mqttClient.IsConnected()

	status := models.DeviceStatus{
		DeviceID:           deviceID,
		ConnectionState:    models.StateUnknown,
		TransportConnected: connected,
	}

	device, err := f.tracker.GetSnapshot(deviceID)
	if err != nil {
		return status
	}

	status.ConnectionState = device.ConnectionState
	if device.LastHeartbeatAt != nil {
		at := *device.LastHeartbeatAt
		status.LastHeartbeatAt = &at
		seconds := int64(now.Sub(at) / time.Second)
		status.SecondsSinceHeartbeat = &seconds
	}

	status.HeartbeatLive = f.tracker.IsHeartbeatLive(deviceID, now, f.heartbeatThreshold)
	status.CanDispatch = status.HeartbeatLive && connected

	return status
}

// TransportConnected reports the broker connection state.
func (f *Facade) TransportConnected() bool {
	return f.mqttClient.IsConnected()
}

// GetSnapshot returns the raw device record, ErrNotFound for unknown devices.
func (f *Facade) GetSnapshot(deviceID string) (models.Device, error) {
	return f.tracker.GetSnapshot(deviceID)
}

// Devices lists every known device record.
func (f *Facade) Devices() []models.Device {
	return f.tracker.Devices()
}
