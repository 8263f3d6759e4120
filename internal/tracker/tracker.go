package tracker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/models"
)

// Status-machine event names.
const (
	eventOnline  = "online"
	eventOffline = "offline"
)

// Tracker maintains per-device liveness state from two independent signals:
// periodic telemetry heartbeats and broker-delivered last-will status
// messages. The two are deliberately kept apart — heartbeat recency is a
// timeout heuristic, the status machine is an event-driven assertion.
type Tracker struct {
	mu      sync.RWMutex
	devices map[string]*deviceEntry
	logger  zerolog.Logger
}

type deviceEntry struct {
	device  models.Device
	machine *fsm.FSM
}

// NewTracker initializes an empty Tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		devices: make(map[string]*deviceEntry),
		logger:  logger,
	}
}

// newStatusMachine builds the UNKNOWN/ONLINE/OFFLINE machine for one device.
// Source states include the destination so a duplicate status message yields
// fsm.NoTransitionError instead of an invalid event.
func newStatusMachine() *fsm.FSM {
	return fsm.NewFSM(
		string(models.StateUnknown),
		fsm.Events{
			{
				Name: eventOnline,
				Src:  []string{string(models.StateUnknown), string(models.StateOffline), string(models.StateOnline)},
				Dst:  string(models.StateOnline),
			},
			{
				Name: eventOffline,
				Src:  []string{string(models.StateUnknown), string(models.StateOnline), string(models.StateOffline)},
				Dst:  string(models.StateOffline),
			},
		},
		fsm.Callbacks{},
	)
}

// entry returns the record for deviceID, creating it on first observation.
// Callers must hold the write lock.
func (t *Tracker) entry(deviceID string) *deviceEntry {
	e, ok := t.devices[deviceID]
	if !ok {
		e = &deviceEntry{
			device: models.Device{
				DeviceID:        deviceID,
				ConnectionState: models.StateUnknown,
				OfflineReason:   models.ReasonNone,
			},
			machine: newStatusMachine(),
		}
		t.devices[deviceID] = e
	}
	return e
}

// RecordHeartbeat notes a telemetry delivery for deviceID. Last write wins.
func (t *Tracker) RecordHeartbeat(deviceID string, observedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entry(deviceID)
	at := observedAt
	e.device.LastHeartbeatAt = &at

	t.logger.Debug().Str("device_id", deviceID).Time("at", observedAt).Msg("Heartbeat recorded")
}

// RecordStatus applies a last-will status message. Transition counters and
// timestamps move only when the state actually changes; the state and reason
// fields are overwritten unconditionally so duplicate deliveries are absorbed.
func (t *Tracker) RecordStatus(deviceID string, online bool, reason string, observedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entry(deviceID)

	event := eventOffline
	if online {
		event = eventOnline
	}

	err := e.machine.Event(context.Background(), event)
	switch {
	case err == nil:
		at := observedAt
		if online {
			e.device.OnlineTransitions++
			e.device.LastOnlineAt = &at
		} else {
			e.device.OfflineTransitions++
			e.device.LastOfflineAt = &at
		}
		t.logger.Info().
			Str("device_id", deviceID).
			Bool("online", online).
			Str("reason", reason).
			Msg("Device connection state changed")
	case errors.As(err, &fsm.NoTransitionError{}):
		t.logger.Debug().Str("device_id", deviceID).Bool("online", online).Msg("Duplicate status message absorbed")
	default:
		t.logger.Error().Err(err).Str("device_id", deviceID).Msg("Status machine rejected event")
		return
	}

	e.device.ConnectionState = models.ConnectionState(e.machine.Current())
	if online {
		e.device.OfflineReason = models.ReasonNone
	} else {
		e.device.OfflineReason = models.ParseOfflineReason(reason)
	}
}

// IsHeartbeatLive reports whether deviceID produced a heartbeat within
// threshold of now. Unknown devices are simply not live.
func (t *Tracker) IsHeartbeatLive(deviceID string, now time.Time, threshold time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.devices[deviceID]
	if !ok || e.device.LastHeartbeatAt == nil {
		return false
	}
	return now.Sub(*e.device.LastHeartbeatAt) <= threshold
}

// GetSnapshot returns a copy of the device record.
func (t *Tracker) GetSnapshot(deviceID string) (models.Device, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.devices[deviceID]
	if !ok {
		return models.Device{}, models.ErrNotFound
	}
	return e.device, nil
}

// Devices returns a copy of every known device record, sorted by identifier.
func (t *Tracker) Devices() []models.Device {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Device, 0, len(t.devices))
	for _, e := range t.devices {
		out = append(out, e.device)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}
