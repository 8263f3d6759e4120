package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/correlator"
	"github.com/xiaoqiao/device-tools/internal/dispatcher"
	"github.com/xiaoqiao/device-tools/internal/facade"
	"github.com/xiaoqiao/device-tools/internal/models"
	"github.com/xiaoqiao/device-tools/internal/router"
	"github.com/xiaoqiao/device-tools/internal/server"
	"github.com/xiaoqiao/device-tools/internal/tracker"
	"github.com/xiaoqiao/device-tools/internal/utils"
	"github.com/xiaoqiao/device-tools/pkg/file"
	"github.com/xiaoqiao/device-tools/pkg/mqtt"
)

func main() {
	configPath := flag.String("config", "configs/bridge.yaml", "Path to the configuration file")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(config.Log.Level); err == nil && config.Log.Level != "" {
		logger = logger.Level(level)
	}

	// Unique client ID per process so parallel bridges never collide.
	clientID := config.MQTT.ClientID + "-" + uuid.New().String()[:8]
	logger.Info().Str("client_id", clientID).Msg("Using MQTT client ID")

	// The broker announces this bridge dropping abnormally, the same last-will
	// convention the devices follow.
	willPayload, _ := json.Marshal(models.StatusMessage{Online: false, Reason: "abnormal_disconnect"})

	mqttClient := mqtt.NewMqttService(fileClient, logger)
	err = mqttClient.Initialize(mqtt.Options{
		Broker:         config.MQTT.Broker,
		ClientID:       clientID,
		Username:       config.MQTT.Username,
		Password:       config.MQTT.Password,
		CACertPath:     config.MQTT.CACertificate,
		ConnectTimeout: config.MQTT.ConnectTimeout.Std(),
		Will: &mqtt.Will{
			Topic:    models.StatusTopic(clientID),
			Payload:  string(willPayload),
			QOS:      1,
			Retained: true,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	store := dispatcher.NewPendingStore(config.Dispatcher.MaxPending, config.Dispatcher.PendingTTL.Std(), logger)
	disp := dispatcher.NewDispatcher(mqttClient, store, config.Dispatcher.CommandQOS, logger)
	trk := tracker.NewTracker(logger)
	corr := correlator.NewCorrelator(store, mqttClient, config.Correlator.AutoAckReceipt, logger)
	rtr := router.NewRouter(mqttClient, trk, corr, config.Router.QueueSize, logger)
	fac := facade.NewFacade(trk, mqttClient, config.Tracker.HeartbeatThreshold.Std(), logger)

	if err := rtr.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start router")
	}

	srv := server.NewServer(fac, disp, logger)
	httpServer := &http.Server{
		Addr:    config.HTTP.Listen,
		Handler: srv.Routes(),
	}

	go func() {
		logger.Info().Str("listen", config.HTTP.Listen).Msg("HTTP bridge listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	if err := rtr.Stop(); err != nil {
		logger.Warn().Err(err).Msg("Router stop failed")
	}
	mqttClient.Disconnect(250)
}
