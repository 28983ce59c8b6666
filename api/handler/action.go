package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/chimera/models"
	"github.com/use-agent/chimera/ooda"
)

// PerformAction returns a handler for POST /api/v1/sessions/:id/action. It
// drives one OODA closed-loop action (click/type/scroll/wait) to completion.
func PerformAction(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PerformActionRequest
		req.SessionID = c.Param("id")
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewAgentError(models.ErrCodeInvalidInput, err.Error(), nil))
			return
		}

		sess, err := d.Manager.Get(req.SessionID)
		if err != nil {
			respondError(c, err)
			return
		}

		maxRetries := req.MaxRetries
		if maxRetries <= 0 {
			maxRetries = d.Cfg.OODA.DefaultMaxRetries
		}

		executor := ooda.New(sess, d.newVision(), d.World, 0)
		res, err := executor.Execute(c.Request.Context(), req.Intent, req.ActionType, req.Text, maxRetries)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.PerformActionResponse{
			Success:    res.Success,
			Message:    res.Message,
			Screenshot: res.Screenshot,
			URL:        res.URL,
			Title:      res.Title,
		})
	}
}
