package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/chimera/models"
	"github.com/use-agent/chimera/session"
)

// StartSession returns a handler for POST /api/v1/sessions. It launches a
// browser process bound to the sidecar proxy, grafts a rotated synthetic
// profile fingerprint, and registers the session before returning so any
// subsequent request can look it up by id.
func StartSession(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.StartSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewAgentError(models.ErrCodeInvalidInput, err.Error(), nil))
			return
		}

		opts := d.sessionOptions(c, req.Headless)
		sess, err := session.New(req.SessionID, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		d.Manager.Put(sess)

		c.JSON(http.StatusOK, models.StartSessionResponse{
			Success: true,
			Message: "session started: " + req.SessionID,
		})
	}
}

// CloseSession returns a handler for DELETE /api/v1/sessions/:id. Missing
// session ids are treated as already-closed, matching Manager.Close's
// no-op-on-absent semantics.
func CloseSession(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		d.Manager.Close(id)
		c.JSON(http.StatusOK, models.CloseSessionResponse{Success: true})
	}
}
