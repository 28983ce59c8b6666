// Package handler implements the agent's RPC surface as Gin handlers, one
// file per operation.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/chimera/config"
	"github.com/use-agent/chimera/models"
	"github.com/use-agent/chimera/ooda"
	"github.com/use-agent/chimera/profile"
	"github.com/use-agent/chimera/session"
	"github.com/use-agent/chimera/worldmodel"
)

// Deps bundles the process-wide collaborators every handler needs.
type Deps struct {
	Manager  *session.Manager
	Profiles *profile.Store
	World    *worldmodel.Model
	Cfg      *config.Config
}

// newVision builds a fresh HTTP vision client per request — the objective
// stream contract opens one connection per iteration, so callers that need
// a longer-lived client should use this helper per-call rather than cache it.
func (d *Deps) newVision() ooda.Vision {
	return ooda.NewHTTPVisionClient(d.Cfg.Vision.Addr, nil)
}

// sessionOptions builds session.Options from agent config, optionally
// grafting a rotated SyntheticProfile's fingerprint.
func (d *Deps) sessionOptions(ctx *gin.Context, headless bool) session.Options {
	opts := session.Options{
		Headless:   headless,
		ProxyPort:  d.Cfg.Sidecar.ProxyPort,
		BrowserBin: d.Cfg.Browser.Bin,
		NoSandbox:  d.Cfg.Browser.NoSandbox,
		ViewportW:  d.Cfg.Browser.ViewportW,
		ViewportH:  d.Cfg.Browser.ViewportH,
	}
	if d.Profiles != nil {
		if p, err := d.Profiles.Get(ctx.Request.Context(), ""); err == nil {
			fp := p.Fingerprint
			opts.Fingerprint = &fp
		}
	}
	return opts
}

// respondError maps an AgentError to its RPC status and writes a JSON body
// shaped {success:false, error:{code,message}}; anything else (a collaborator
// that returned a plain error) is wrapped as internal.
func respondError(c *gin.Context, err error) {
	agentErr, ok := err.(*models.AgentError)
	if !ok {
		agentErr = models.NewAgentError(models.ErrCodeInternal, err.Error(), nil)
	}
	c.JSON(statusForCode(agentErr.Code), gin.H{
		"success": false,
		"error":   agentErr.ToDetail(),
	})
}

func statusForCode(code string) int {
	switch code {
	case models.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default: // BrowserFailure, VisionFailure, ActionFailed, internal, etc.
		return http.StatusInternalServerError
	}
}

// Health returns a handler for GET /api/v1/health, reporting status, uptime
// and version. It reports neither an active session count nor page-pool
// statistics.
func Health(manager *session.Manager, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": "0.1.0",
		})
	}
}
