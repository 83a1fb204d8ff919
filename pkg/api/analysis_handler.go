package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Analysis endpoints. Insufficient history is not an error: the
// snapshot carries an explicit flag and the request succeeds.

func (h *Handler) getLaps(c *gin.Context) {
	spd, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, spd.Processor.Laps())
}

func (h *Handler) getFuel(c *gin.Context) {
	spd, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, spd.Processor.FuelState())
}

func (h *Handler) getTire(c *gin.Context) {
	spd, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, spd.Processor.TireState())
}

func (h *Handler) getDriver(c *gin.Context) {
	spd, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, spd.Processor.DriverPerformance())
}

func (h *Handler) getStrategy(c *gin.Context) {
	spd, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, spd.Processor.Recommendation())
}
