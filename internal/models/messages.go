package models

// Telemetry is the uplink heartbeat/metrics report the firmware publishes
// every interval. Only the fields the bridge cares about are decoded; the rest
// of the payload (battery, memory, wifi, iot_states) is carried opaquely.
type Telemetry struct {
	Type       string `json:"type"`
	Online     bool   `json:"online"`
	Timestamp  int64  `json:"ts"`
	DeviceName string `json:"device_name,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	MacAddress string `json:"mac,omitempty"`
	OTAVersion string `json:"ota_version,omitempty"`
}

// StatusMessage is the broker-delivered last-will assertion on the status topic.
type StatusMessage struct {
	Online bool   `json:"online"`
	Reason string `json:"reason,omitempty"`
}

// Acknowledgment is the device's reply on the ack topic after executing a
// command. MessageID is set by notification-style messages that expect a
// transport-receipt confirmation; RequestID links back to a dispatched command.
type Acknowledgment struct {
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// AckReceipt confirms transport receipt of a message back to the device. It is
// a protocol handshake, not a statement about command execution.
type AckReceipt struct {
	Type       string `json:"type"` // Always "ack_receipt".
	MessageID  string `json:"message_id"`
	ReceivedAt int64  `json:"received_at"`
	Status     string `json:"status"` // Always "processed".
}

const (
	MessageTypeIoT        = "iot"
	MessageTypeTelemetry  = "telemetry"
	MessageTypeAck        = "ack"
	MessageTypeAckReceipt = "ack_receipt"
)
