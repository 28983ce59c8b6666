// Package api exposes the agent's RPC surface — StartSession, Navigate,
// PerformAction, GetState, RunObjective, CloseSession — over HTTP/JSON with
// a server-sent-events stream for the one streaming operation.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/chimera/api/handler"
	"github.com/use-agent/chimera/api/middleware"
	"github.com/use-agent/chimera/config"
	"github.com/use-agent/chimera/profile"
	"github.com/use-agent/chimera/session"
	"github.com/use-agent/chimera/worldmodel"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is intentionally outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, manager *session.Manager, profiles *profile.Store, world *worldmodel.Model, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	deps := &handler.Deps{
		Manager:  manager,
		Profiles: profiles,
		World:    world,
		Cfg:      cfg,
	}

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(manager, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/sessions", handler.StartSession(deps))
	protected.DELETE("/sessions/:id", handler.CloseSession(deps))
	protected.POST("/sessions/:id/navigate", handler.Navigate(deps))
	protected.POST("/sessions/:id/action", handler.PerformAction(deps))
	protected.GET("/sessions/:id/state", handler.GetState(deps))
	protected.POST("/sessions/:id/objective", handler.RunObjective(deps))

	return r
}
