package models

import "time"

// Command is a single device instruction inside a downlink envelope.
type Command struct {
	Name       string                 `json:"name"`       // Target thing, e.g. "Alarm" or "Screen".
	Method     string                 `json:"method"`     // Method on the thing, e.g. "SetAlarm".
	Parameters map[string]interface{} `json:"parameters"` // Method arguments.
}

// CommandEnvelope is the downlink message shape the firmware expects.
type CommandEnvelope struct {
	Type      string    `json:"type"` // Always "iot" for command envelopes.
	Commands  []Command `json:"commands"`
	RequestID string    `json:"request_id"`
}

// PendingCommand records a dispatched command awaiting acknowledgment.
type PendingCommand struct {
	CorrelationID   string                 `json:"correlation_id"`
	DeviceID        string                 `json:"device_id"`
	CommandName     string                 `json:"command_name"`
	CommandMethod   string                 `json:"command_method"`
	Parameters      map[string]interface{} `json:"parameters"`
	SentAt          time.Time              `json:"sent_at"`
	DeliveryQuality byte                   `json:"delivery_quality"`
	Acknowledged    bool                   `json:"acknowledged"`
	AcknowledgedAt  *time.Time             `json:"acknowledged_at,omitempty"`
	AckCount        int                    `json:"ack_count"`
}

// AlarmParams is the fixed parameter set of the firmware's SetAlarm method.
type AlarmParams struct {
	AlarmID    string `json:"id"`
	RepeatType int    `json:"repeat_type"`
	Seconds    int    `json:"seconds"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	RepeatDays int    `json:"repeat_days"`
}
