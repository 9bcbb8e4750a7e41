package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mossy-p/conference-rooms/config"
	"github.com/mossy-p/conference-rooms/internal/credentials"
	"github.com/mossy-p/conference-rooms/internal/metrics"
	"github.com/mossy-p/conference-rooms/internal/rooms"
)

// NewRouter wires the room API, health check, metrics and roster feed.
func NewRouter(cfg *config.Config, registry *rooms.Registry, issuer *credentials.Issuer, hub *Hub, m *metrics.Metrics) *gin.Engine {
	router := gin.New()

	router.Use(Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(m))
	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(cfg.AllowedOrigins))

	roomHandler := NewRoomHandler(registry, hub, m)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", Health(issuer))

		apiGroup.POST("/rooms", roomHandler.CreateRoom)
		apiGroup.GET("/rooms", roomHandler.ListRooms)
		apiGroup.GET("/rooms/:roomId", roomHandler.GetRoom)
		apiGroup.POST("/rooms/:roomId/join", roomHandler.JoinRoom)
		apiGroup.DELETE("/rooms/:roomId", roomHandler.DeleteRoom)
	}

	// Read-only roster events per room
	router.GET("/ws/rooms/:roomId", roomHandler.WatchRoom)

	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.NoRoute(NotFound)

	return router
}
