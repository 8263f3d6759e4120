package models

import (
	"fmt"
	"strings"
)

// Topic channels under devices/{id}/...
const (
	ChannelDownlink = "downlink"
	ChannelUplink   = "uplink"
	ChannelAck      = "ack"
	ChannelStatus   = "status"
)

// BroadcastTopic addresses every device at once with downlink-shaped payloads.
const BroadcastTopic = "devices/broadcast"

// DownlinkTopic is the device-scoped command topic.
func DownlinkTopic(deviceID string) string {
	return fmt.Sprintf("devices/%s/%s", deviceID, ChannelDownlink)
}

// UplinkTopic is the device-scoped telemetry topic.
func UplinkTopic(deviceID string) string {
	return fmt.Sprintf("devices/%s/%s", deviceID, ChannelUplink)
}

// AckTopic is the device-scoped acknowledgment topic.
func AckTopic(deviceID string) string {
	return fmt.Sprintf("devices/%s/%s", deviceID, ChannelAck)
}

// StatusTopic is the device-scoped last-will status topic.
func StatusTopic(deviceID string) string {
	return fmt.Sprintf("devices/%s/%s", deviceID, ChannelStatus)
}

// ParseDeviceTopic splits devices/{id}/{channel} into its parts. ok is false
// for topics outside the devices namespace, including the broadcast topic.
func ParseDeviceTopic(topic string) (deviceID, channel string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "devices" || parts[1] == "" || parts[1] == "broadcast" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
