package handler

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/chimera/models"
	"github.com/use-agent/chimera/ooda"
	"github.com/use-agent/chimera/session"
)

// RunObjective returns a handler for POST /api/v1/sessions/:id/objective.
// It streams {status, message, screenshot, last_action} events over SSE.
// The session is created (and navigated to start_url) if the id isn't
// already registered; an existing session is reused as-is.
func RunObjective(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunObjectiveRequest
		req.SessionID = c.Param("id")
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewAgentError(models.ErrCodeInvalidInput, err.Error(), nil))
			return
		}

		sess, err := d.Manager.Get(req.SessionID)
		if err != nil {
			sess, err = session.New(req.SessionID, d.sessionOptions(c, req.Headless))
			if err != nil {
				respondError(c, err)
				return
			}
			d.Manager.Put(sess)
			if err := sess.Navigate(req.StartURL); err != nil {
				respondError(c, err)
				return
			}
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		executor := ooda.New(sess, d.newVision(), d.World, 0)

		events := make(chan models.ObjectiveEvent, 128)
		go executor.RunObjective(c.Request.Context(), req.Instruction, d.Cfg.OODA.MultiStepObjectives, d.Cfg.OODA.MaxObjectiveIters, events)

		for ev := range events {
			writeSSE(c, "objective", ev)
			if ev.Status == models.StatusComplete || ev.Status == models.StatusError {
				return
			}
		}
	}
}

// writeSSE writes a single SSE event to the response and flushes it
// immediately so the consumer sees each iteration as it happens.
func writeSSE(c *gin.Context, event string, data interface{}) {
	body, _ := json.Marshal(data)
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, body)
	c.Writer.Flush()
}
