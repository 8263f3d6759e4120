package models

import "time"

// ConnectionState is the event-driven view of a device derived from status
// messages on its status topic. It says nothing about heartbeat recency.
type ConnectionState string

const (
	StateUnknown ConnectionState = "unknown"
	StateOnline  ConnectionState = "online"
	StateOffline ConnectionState = "offline"
)

// OfflineReason classifies why a device went offline, as reported by the
// status message. An abnormal disconnect is the broker firing the last will;
// a normal shutdown is the device saying goodbye itself.
type OfflineReason string

const (
	ReasonNone               OfflineReason = "none"
	ReasonAbnormalDisconnect OfflineReason = "abnormal_disconnect"
	ReasonNormalShutdown     OfflineReason = "normal_shutdown"
	ReasonUnspecified        OfflineReason = "unspecified"
)

// ParseOfflineReason maps the wire reason string to its classification.
// An empty reason means none was given; anything unrecognized is preserved
// as unspecified rather than rejected.
func ParseOfflineReason(reason string) OfflineReason {
	switch reason {
	case "":
		return ReasonNone
	case string(ReasonAbnormalDisconnect):
		return ReasonAbnormalDisconnect
	case string(ReasonNormalShutdown):
		return ReasonNormalShutdown
	default:
		return ReasonUnspecified
	}
}

// Device is the tracked liveness record for one device. Heartbeat fields and
// connection-state fields evolve independently; neither is derived from the
// other.
type Device struct {
	DeviceID        string          `json:"device_id"`
	LastHeartbeatAt *time.Time      `json:"last_heartbeat,omitempty"`
	ConnectionState ConnectionState `json:"connection_state"`
	OfflineReason   OfflineReason   `json:"offline_reason"`

	OnlineTransitions  uint64 `json:"online_transitions"`
	OfflineTransitions uint64 `json:"offline_transitions"`

	LastOnlineAt  *time.Time `json:"last_online,omitempty"`
	LastOfflineAt *time.Time `json:"last_offline,omitempty"`
}

// DeviceStatus is the liveness projection served over HTTP. The online and
// can_set_alarm fields answer the caller's real question, "will a command
// reach this device right now", from heartbeat recency and broker
// connectivity.
type DeviceStatus struct {
	DeviceID              string          `json:"device_id"`
	HeartbeatLive         bool            `json:"online"`
	CanDispatch           bool            `json:"can_set_alarm"`
	ConnectionState       ConnectionState `json:"connection_state"`
	LastHeartbeatAt       *time.Time      `json:"last_heartbeat,omitempty"`
	SecondsSinceHeartbeat *int64          `json:"seconds_since_heartbeat,omitempty"`
	TransportConnected    bool            `json:"mqtt_connected"`
}
