package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/xiaoqiao/device-tools/internal/console"
	"github.com/xiaoqiao/device-tools/internal/correlator"
	"github.com/xiaoqiao/device-tools/internal/dispatcher"
	"github.com/xiaoqiao/device-tools/internal/facade"
	"github.com/xiaoqiao/device-tools/internal/router"
	"github.com/xiaoqiao/device-tools/internal/tracker"
	"github.com/xiaoqiao/device-tools/internal/utils"
	"github.com/xiaoqiao/device-tools/pkg/file"
	"github.com/xiaoqiao/device-tools/pkg/mqtt"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "console",
		Short: "MQTT debugging console for device topics",
		Long:  "Watch device topics, publish message templates, and track device liveness against the broker.",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/console.yaml", "Path to the configuration file")

	rootCmd.AddCommand(
		watchCmd(),
		pubCmd(),
		templatesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildConsole connects to the broker and wires the core around it.
func buildConsole() (*console.Console, *mqtt.MqttService, error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	clientID := config.MQTT.ClientID + "-console-" + uuid.New().String()[:8]

	mqttClient := mqtt.NewMqttService(fileClient, logger)
	err = mqttClient.Initialize(mqtt.Options{
		Broker:         config.MQTT.Broker,
		ClientID:       clientID,
		Username:       config.MQTT.Username,
		Password:       config.MQTT.Password,
		CACertPath:     config.MQTT.CACertificate,
		ConnectTimeout: config.MQTT.ConnectTimeout.Std(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}

	store := dispatcher.NewPendingStore(config.Dispatcher.MaxPending, config.Dispatcher.PendingTTL.Std(), logger)
	disp := dispatcher.NewDispatcher(mqttClient, store, config.Dispatcher.CommandQOS, logger)
	trk := tracker.NewTracker(logger)
	corr := correlator.NewCorrelator(store, mqttClient, config.Correlator.AutoAckReceipt, logger)
	rtr := router.NewRouter(mqttClient, trk, corr, config.Router.QueueSize, logger)
	fac := facade.NewFacade(trk, mqttClient, config.Tracker.HeartbeatThreshold.Std(), logger)

	return console.NewConsole(mqttClient, disp, fac, rtr, os.Stdout, logger), mqttClient, nil
}

func watchCmd() *cobra.Command {
	var (
		deviceID string
		topics   []string
		summary  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to device topics and print every delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deviceID == "" && len(topics) == 0 {
				return fmt.Errorf("either --device or --topic is required")
			}

			c, mqttClient, err := buildConsole()
			if err != nil {
				return err
			}
			defer mqttClient.Disconnect(250)

			watchTopics := topics
			if deviceID != "" {
				watchTopics = append(watchTopics, console.DeviceTopics(deviceID)...)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return c.Watch(ctx, watchTopics, summary)
		},
	}

	cmd.Flags().StringVarP(&deviceID, "device", "d", "", "Device ID to watch (expands to all four channels)")
	cmd.Flags().StringArrayVarP(&topics, "topic", "t", nil, "Explicit topic pattern to watch (repeatable)")
	cmd.Flags().DurationVar(&summary, "summary", 0, "Print the device liveness table at this interval (0 disables)")

	return cmd
}

func pubCmd() *cobra.Command {
	var (
		deviceIDs []string
		broadcast bool
		template  string
		topic     string
		payload   string
		qos       uint8
	)

	cmd := &cobra.Command{
		Use:   "pub",
		Short: "Publish a template or raw payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, mqttClient, err := buildConsole()
			if err != nil {
				return err
			}
			defer mqttClient.Disconnect(250)

			if template != "" {
				return c.PublishTemplate(template, deviceIDs, broadcast)
			}
			if topic == "" || payload == "" {
				return fmt.Errorf("either --template or both --topic and --payload are required")
			}

			var body interface{}
			if err := json.Unmarshal([]byte(payload), &body); err != nil {
				return fmt.Errorf("payload is not valid JSON: %w", err)
			}
			return c.PublishRaw(topic, body, qos)
		},
	}

	cmd.Flags().StringArrayVarP(&deviceIDs, "device", "d", nil, "Target device ID (repeatable)")
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "Publish to the broadcast topic instead of device topics")
	cmd.Flags().StringVar(&template, "template", "", "Template name (see 'console templates')")
	cmd.Flags().StringVar(&topic, "topic", "", "Raw publish topic")
	cmd.Flags().StringVar(&payload, "payload", "", "Raw JSON payload")
	cmd.Flags().Uint8Var(&qos, "qos", 1, "QoS for raw publishes")

	return cmd
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the message template library",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := console.NewConsole(nil, nil, nil, nil, os.Stdout, zerolog.Nop())
			c.PrintTemplates()
			return nil
		},
	}
}
