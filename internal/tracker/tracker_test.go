package tracker_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/internal/tracker"
)

func TestTracker_UnknownDevice(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())

	assert.False(t, trk.IsHeartbeatLive("ghost", time.Now(), time.Minute))

	_, err := trk.GetSnapshot("ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTracker_HeartbeatLivenessWindow(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	threshold := 120 * time.Second
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	trk.RecordHeartbeat("dev-1", t0)

	assert.True(t, trk.IsHeartbeatLive("dev-1", t0.Add(threshold), threshold))
	assert.False(t, trk.IsHeartbeatLive("dev-1", t0.Add(threshold+time.Second), threshold))
}

func TestTracker_HeartbeatLastWriteWins(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	trk.RecordHeartbeat("dev-1", t0)
	trk.RecordHeartbeat("dev-1", t1)

	device, err := trk.GetSnapshot("dev-1")
	assert.NoError(t, err)
	assert.Equal(t, t1, *device.LastHeartbeatAt)
}

func TestTracker_DuplicateOnlineCountsOnce(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	now := time.Now()

	trk.RecordStatus("dev-1", true, "", now)
	trk.RecordStatus("dev-1", true, "", now.Add(time.Second))

	device, err := trk.GetSnapshot("dev-1")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), device.OnlineTransitions)
	assert.Equal(t, models.StateOnline, device.ConnectionState)
	assert.Equal(t, models.ReasonNone, device.OfflineReason)
}

func TestTracker_OnlineThenOffline(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	now := time.Now()

	trk.RecordStatus("dev-1", true, "", now)
	trk.RecordStatus("dev-1", false, "abnormal_disconnect", now.Add(time.Minute))

	device, err := trk.GetSnapshot("dev-1")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), device.OnlineTransitions)
	assert.Equal(t, uint64(1), device.OfflineTransitions)
	assert.Equal(t, models.StateOffline, device.ConnectionState)
	assert.Equal(t, models.ReasonAbnormalDisconnect, device.OfflineReason)
	assert.NotNil(t, device.LastOfflineAt)
}

func TestTracker_OfflineReasonMapping(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	now := time.Now()

	trk.RecordStatus("dev-1", false, "normal_shutdown", now)
	device, _ := trk.GetSnapshot("dev-1")
	assert.Equal(t, models.ReasonNormalShutdown, device.OfflineReason)

	trk.RecordStatus("dev-2", false, "power surge", now)
	device, _ = trk.GetSnapshot("dev-2")
	assert.Equal(t, models.ReasonUnspecified, device.OfflineReason)
}

func TestTracker_ReasonClearedOnReconnect(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	now := time.Now()

	trk.RecordStatus("dev-1", false, "abnormal_disconnect", now)
	trk.RecordStatus("dev-1", true, "", now.Add(time.Minute))

	device, _ := trk.GetSnapshot("dev-1")
	assert.Equal(t, models.StateOnline, device.ConnectionState)
	assert.Equal(t, models.ReasonNone, device.OfflineReason)
	assert.Equal(t, uint64(1), device.OnlineTransitions)
	assert.Equal(t, uint64(1), device.OfflineTransitions)
}

func TestTracker_DuplicateOfflineKeepsLatestReason(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	now := time.Now()

	trk.RecordStatus("dev-1", false, "abnormal_disconnect", now)
	trk.RecordStatus("dev-1", false, "normal_shutdown", now.Add(time.Second))

	device, _ := trk.GetSnapshot("dev-1")
	assert.Equal(t, uint64(1), device.OfflineTransitions)
	assert.Equal(t, models.ReasonNormalShutdown, device.OfflineReason)
}

func TestTracker_DevicesSorted(t *testing.T) {
	trk := tracker.NewTracker(zerolog.Nop())
	now := time.Now()

	trk.RecordHeartbeat("b", now)
	trk.RecordHeartbeat("a", now)
	trk.RecordStatus("c", true, "", now)

	devices := trk.Devices()
	assert.Len(t, devices, 3)
	assert.Equal(t, "a", devices[0].DeviceID)
	assert.Equal(t, "b", devices[1].DeviceID)
	assert.Equal(t, "c", devices[2].DeviceID)
}
