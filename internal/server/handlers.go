package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiaoqiao/device-tools/internal/dispatcher"
	"github.com/xiaoqiao/device-tools/internal/models"
)

type setAlarmRequest struct {
	DeviceID   *string `json:"device_id"`
	AlarmID    *string `json:"id"`
	RepeatType *int    `json:"repeat_type"`
	Seconds    *int    `json:"seconds"`
	Hour       *int    `json:"hour"`
	Minute     *int    `json:"minute"`
	RepeatDays *int    `json:"repeat_days"`
}

type cancelAlarmRequest struct {
	DeviceID *string `json:"device_id"`
	AlarmID  *string `json:"id"`
}

type quickAlarmRequest struct {
	DeviceID *string `json:"device_id"`
	AlarmID  *string `json:"id"`
	Type     *string `json:"type"`
	Seconds  int     `json:"seconds"`
	Hour     int     `json:"hour"`
	Minute   int     `json:"minute"`
	Weekdays []int   `json:"weekdays"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"mqtt_connected": s.facade.TransportConnected(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleDeviceStatus(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		respondError(c, http.StatusBadRequest, "missing device_id parameter", s.logger)
		return
	}

	status := s.facade.GetDeviceStatus(deviceID, time.Now())
	respondData(c, "device status", status)
}

func (s *Server) handleSetAlarm(c *gin.Context) {
	var req setAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed request body", s.logger)
		return
	}
	if req.DeviceID == nil || req.AlarmID == nil || req.RepeatType == nil ||
		req.Seconds == nil || req.Hour == nil || req.Minute == nil || req.RepeatDays == nil {
		respondError(c, http.StatusBadRequest, "missing required fields: device_id, id, repeat_type, seconds, hour, minute, repeat_days", s.logger)
		return
	}

	params := models.AlarmParams{
		AlarmID:    *req.AlarmID,
		RepeatType: *req.RepeatType,
		Seconds:    *req.Seconds,
		Hour:       *req.Hour,
		Minute:     *req.Minute,
		RepeatDays: *req.RepeatDays,
	}

	requestID, err := s.dispatcher.DispatchAlarm(*req.DeviceID, params)
	if err != nil {
		respondError(c, statusForError(err), err.Error(), s.logger)
		return
	}

	respondData(c, "command dispatched", gin.H{
		"alarm_id":   params.AlarmID,
		"request_id": requestID,
	})
}

func (s *Server) handleCancelAlarm(c *gin.Context) {
	var req cancelAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed request body", s.logger)
		return
	}
	if req.DeviceID == nil || req.AlarmID == nil {
		respondError(c, http.StatusBadRequest, "missing required fields: device_id, id", s.logger)
		return
	}

	requestID, err := s.dispatcher.DispatchCancelAlarm(*req.DeviceID, *req.AlarmID)
	if err != nil {
		respondError(c, statusForError(err), err.Error(), s.logger)
		return
	}

	respondData(c, "command dispatched", gin.H{
		"alarm_id":   *req.AlarmID,
		"request_id": requestID,
	})
}

func (s *Server) handleQuickAlarm(c *gin.Context) {
	var req quickAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed request body", s.logger)
		return
	}
	if req.DeviceID == nil || req.AlarmID == nil || req.Type == nil {
		respondError(c, http.StatusBadRequest, "missing required fields: device_id, id, type", s.logger)
		return
	}

	params, err := dispatcher.BuildQuickAlarm(*req.AlarmID, *req.Type, req.Seconds, req.Hour, req.Minute, req.Weekdays)
	if err != nil {
		respondError(c, statusForError(err), err.Error(), s.logger)
		return
	}

	requestID, err := s.dispatcher.DispatchAlarm(*req.DeviceID, params)
	if err != nil {
		respondError(c, statusForError(err), err.Error(), s.logger)
		return
	}

	respondData(c, "command dispatched", gin.H{
		"alarm_id":   params.AlarmID,
		"alarm_type": *req.Type,
		"request_id": requestID,
		"parameters": params,
	})
}
