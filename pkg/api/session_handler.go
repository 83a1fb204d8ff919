package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pitwall/strategy-engine-go/log"
	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
	"github.com/pitwall/strategy-engine-go/pkg/utils"
)

type registerSessionRequest struct {
	// optional; a generated key is assigned when empty
	Key    string               `json:"key"`
	Config *model.SessionConfig `json:"config"`
}

func (h *Handler) registerSession(c *gin.Context) {
	var req registerSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Config == nil {
		req.Config = model.DefaultSessionConfig()
	}
	spd, err := h.lookup.AddSession(req.Key, req.Config)
	if err != nil {
		switch {
		case errors.Is(err, processing.ErrInvalidConfiguration):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, utils.ErrSessionExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "key": req.Key})
		default:
			h.l.Error("error registering session", log.ErrorField(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, spd.Info())
}

func (h *Handler) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.lookup.GetSessions())
}

func (h *Handler) removeSession(c *gin.Context) {
	spd, ok := h.session(c)
	if !ok {
		return
	}
	h.lookup.RemoveSession(spd.Session.Key)
	c.Status(http.StatusNoContent)
}

// ingestSample is the HTTP alternative to the NATS telemetry feed.
func (h *Handler) ingestSample(c *gin.Context) {
	spd, ok := h.session(c)
	if !ok {
		return
	}
	var sample model.TelemetrySample
	if err := c.ShouldBindJSON(&sample); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := spd.Processor.ProcessSample(sample); err != nil {
		if errors.Is(err, history.ErrOutOfOrderSample) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	spd.MarkData()
	spd.PublishRecommendation(spd.Processor.Recommendation())
	c.JSON(http.StatusAccepted, gin.H{"samples": spd.Processor.SampleCount()})
}
