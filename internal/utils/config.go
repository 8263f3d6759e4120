package utils

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xiaoqiao/device-tools/pkg/file"
)

// Duration wraps time.Duration so config values can be written as "10s" or
// "5m". Bare integers are read as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the structure of the configuration file.
type Config struct {
	Log struct {
		Level string `yaml:"level"` // zerolog level name, e.g. "info"
	} `yaml:"log"`

	MQTT struct {
		Broker         string   `yaml:"broker"`          // MQTT broker address, e.g. ssl://host:8883
		ClientID       string   `yaml:"client_id"`       // MQTT client ID prefix
		Username       string   `yaml:"username"`        // Broker username
		Password       string   `yaml:"password"`        // Broker password
		CACertificate  string   `yaml:"ca_certificate"`  // Path to the CA certificate (empty disables TLS)
		ConnectTimeout Duration `yaml:"connect_timeout"` // Bound on the initial handshake
	} `yaml:"mqtt"`

	HTTP struct {
		Listen string `yaml:"listen"` // HTTP listen address for the bridge
	} `yaml:"http"`

	Tracker struct {
		HeartbeatThreshold Duration `yaml:"heartbeat_threshold"` // Heartbeat recency window for liveness
	} `yaml:"tracker"`

	Dispatcher struct {
		CommandQOS byte     `yaml:"command_qos"` // QoS for command publishes
		MaxPending int      `yaml:"max_pending"` // Cap on retained pending commands
		PendingTTL Duration `yaml:"pending_ttl"` // Age bound on retained pending commands
	} `yaml:"dispatcher"`

	Correlator struct {
		AutoAckReceipt bool `yaml:"auto_ack_receipt"` // Reply ack_receipt for messages carrying message_id
	} `yaml:"correlator"`

	Router struct {
		QueueSize int `yaml:"queue_size"` // Bounded delivery queue between the network loop and the consumer
	} `yaml:"router"`
}

// LoadConfig loads the YAML configuration from the specified file and applies
// defaults for unset tunables.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if config.MQTT.ConnectTimeout == 0 {
		config.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}
	if config.Tracker.HeartbeatThreshold == 0 {
		config.Tracker.HeartbeatThreshold = Duration(120 * time.Second)
	}
	if config.Dispatcher.CommandQOS == 0 {
		config.Dispatcher.CommandQOS = 2
	}
	if config.Dispatcher.MaxPending == 0 {
		config.Dispatcher.MaxPending = 1024
	}
	if config.Dispatcher.PendingTTL == 0 {
		config.Dispatcher.PendingTTL = Duration(30 * time.Minute)
	}
	if config.Router.QueueSize == 0 {
		config.Router.QueueSize = 256
	}
	if config.HTTP.Listen == "" {
		config.HTTP.Listen = ":6999"
	}

	return &config, nil
}
