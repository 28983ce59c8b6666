package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/chimera/models"
)

// Navigate returns a handler for POST /api/v1/sessions/:id/navigate.
func Navigate(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NavigateRequest
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

		if err := sess.Navigate(req.URL); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.NavigateResponse{
			Success: true,
			Message: "navigated to " + req.URL,
		})
	}
}
