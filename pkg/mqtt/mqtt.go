package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/pkg/file"
)

// ErrConnectTimeout is returned when the broker does not complete the
// handshake within the configured bound.
var ErrConnectTimeout = errors.New("mqtt connect timed out")

// DefaultConnectTimeout bounds the initial broker handshake.
const DefaultConnectTimeout = 10 * time.Second

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// Will is an optional last-will registration the broker publishes if this
// client drops abnormally.
type Will struct {
	Topic    string
	Payload  string
	QOS      byte
	Retained bool
}

// Options configures the broker connection.
type Options struct {
	Broker         string // e.g. ssl://host:8883 or tcp://host:1883
	ClientID       string
	Username       string
	Password       string
	CACertPath     string // empty disables TLS
	ConnectTimeout time.Duration
	Will           *Will
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client     MQTTClient
	fileClient file.FileOperations
	logger     zerolog.Logger
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations, logger zerolog.Logger) *MqttService {
	return &MqttService{
		fileClient: fileClient,
		logger:     logger,
	}
}

// Initialize sets up the MQTT client and connects to the broker, waiting at
// most opts.ConnectTimeout for the handshake.
func (s *MqttService) Initialize(opts Options) error {
	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetAutoReconnect(true)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	if opts.CACertPath != "" {
		tlsConfig, err := s.buildTLSConfig(opts.CACertPath)
		if err != nil {
			return err
		}
		clientOpts.SetTLSConfig(tlsConfig)
	}

	if opts.Will != nil {
		clientOpts.SetWill(opts.Will.Topic, opts.Will.Payload, opts.Will.QOS, opts.Will.Retained)
	}

	clientOpts.SetOnConnectHandler(func(c mqtt.Client) {
		s.logger.Info().Str("broker", opts.Broker).Msg("Connected to MQTT broker")
	})
	clientOpts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		s.logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	s.client = mqtt.NewClient(clientOpts)

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	token := s.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w after %s", ErrConnectTimeout, timeout)
	}
	if err := token.Error(); err != nil {
		return err
	}

	return nil
}

// buildTLSConfig creates a TLS configuration trusting the given CA certificate.
func (s *MqttService) buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := s.fileClient.ReadFileRaw(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to append CA certificate")
	}

	return &tls.Config{RootCAs: caCertPool}, nil
}

// Connect connects to the MQTT broker.
func (s *MqttService) Connect() mqtt.Token {
	return s.client.Connect()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Subscribe subscribes to the specified topic with a message handler.
func (s *MqttService) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return s.client.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the specified topics.
func (s *MqttService) Unsubscribe(topics ...string) mqtt.Token {
	return s.client.Unsubscribe(topics...)
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	s.client.Disconnect(quiesce)
}

// IsConnected reports whether the client currently holds a broker connection.
func (s *MqttService) IsConnected() bool {
	return s.client != nil && s.client.IsConnected()
}
