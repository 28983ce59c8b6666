package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/chimera/models"
)

// GetState returns a handler for GET /api/v1/sessions/:id/state.
func GetState(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		sess, err := d.Manager.Get(id)
		if err != nil {
			respondError(c, err)
			return
		}

		shot, err := sess.Screenshot()
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.GetStateResponse{
			Screenshot: shot,
			URL:        sess.URL(),
			Title:      sess.Title(),
		})
	}
}
