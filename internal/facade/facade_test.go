package facade_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/xiaoqiao/device-tools/internal/facade"
	"github.com/xiaoqiao/device-tools/internal/mocks"
	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/internal/tracker"
)

const threshold = 2 * time.Minute

func newFacade(connected bool) (*facade.Facade, *tracker.Tracker) {
	client := new(mocks.MockMQTTClient)
	client.On("IsConnected").Return(connected)
	trk := tracker.NewTracker(zerolog.Nop())
	return facade.NewFacade(trk, client, threshold, zerolog.Nop()), trk
}

func TestGetDeviceStatus_UnknownDeviceDefaults(t *testing.T) {
	fac, _ := newFacade(true)

	status := fac.GetDeviceStatus("dev-1", time.Now())

	assert.Equal(t, "dev-1", status.DeviceID)
	assert.Equal(t, models.StateUnknown, status.ConnectionState)
	assert.False(t, status.HeartbeatLive)
	assert.False(t, status.CanDispatch)
	assert.True(t, status.TransportConnected)
	assert.Nil(t, status.LastHeartbeatAt)
	assert.Nil(t, status.SecondsSinceHeartbeat)
}

func TestGetDeviceStatus_FreshHeartbeatCanDispatch(t *testing.T) {
	fac, trk := newFacade(true)

	t0 := time.Now()
	trk.RecordHeartbeat("dev-1", t0)

	status := fac.GetDeviceStatus("dev-1", t0.Add(30*time.Second))

	assert.True(t, status.HeartbeatLive)
	assert.True(t, status.CanDispatch)
	if assert.NotNil(t, status.SecondsSinceHeartbeat) {
		assert.Equal(t, int64(30), *status.SecondsSinceHeartbeat)
	}
}

func TestGetDeviceStatus_StaleHeartbeatCannotDispatch(t *testing.T) {
	fac, trk := newFacade(true)

	t0 := time.Now()
	trk.RecordHeartbeat("dev-1", t0)

	status := fac.GetDeviceStatus("dev-1", t0.Add(threshold+time.Second))

	assert.False(t, status.HeartbeatLive)
	assert.False(t, status.CanDispatch)
}

func TestGetDeviceStatus_DisconnectedTransportBlocksDispatch(t *testing.T) {
	fac, trk := newFacade(false)

	t0 := time.Now()
	trk.RecordHeartbeat("dev-1", t0)

	status := fac.GetDeviceStatus("dev-1", t0.Add(time.Second))

	assert.True(t, status.HeartbeatLive)
	assert.False(t, status.CanDispatch)
	assert.False(t, status.TransportConnected)
}

func TestGetDeviceStatus_StatusMachineReportedNotRequired(t *testing.T) {
	fac, trk := newFacade(true)

	t0 := time.Now()
	trk.RecordStatus("dev-1", false, "abnormal_disconnect", t0)
	trk.RecordHeartbeat("dev-1", t0)

	status := fac.GetDeviceStatus("dev-1", t0.Add(time.Second))

	assert.Equal(t, models.StateOffline, status.ConnectionState)
	assert.True(t, status.CanDispatch)
}

func TestTransportConnected(t *testing.T) {
	fac, _ := newFacade(false)
	assert.False(t, fac.TransportConnected())
}
