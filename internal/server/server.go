package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/dispatcher"
	"github.com/xiaoqiao/device-tools/internal/facade"
)

// Server is the HTTP bridge: it exposes device liveness queries and alarm
// dispatch over a small JSON API, delegating to the shared core.
type Server struct {
	facade     *facade.Facade
	dispatcher *dispatcher.Dispatcher
	logger     zerolog.Logger
}

// NewServer initializes the HTTP bridge.
func NewServer(fac *facade.Facade, disp *dispatcher.Dispatcher, logger zerolog.Logger) *Server {
	return &Server{
		facade:     fac,
		dispatcher: disp,
		logger:     logger,
	}
}

// Routes builds the gin engine with all bridge endpoints registered.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(withRequestContext(s.logger))

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.GET("/device/status", s.handleDeviceStatus)
	v1.POST("/alarm/set", s.handleSetAlarm)
	v1.POST("/alarm/cancel", s.handleCancelAlarm)
	v1.POST("/alarm/quick", s.handleQuickAlarm)

	return r
}
