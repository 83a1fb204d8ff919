package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pitwall/strategy-engine-go/log"
	"github.com/pitwall/strategy-engine-go/pkg/utils"
	"github.com/pitwall/strategy-engine-go/version"
)

type (
	// Handler is the HTTP/JSON query surface. All analysis endpoints
	// read fresh snapshots from the session processor; nothing is
	// cached between requests.
	Handler struct {
		lookup    *utils.SessionLookup
		l         *log.Logger
		startTime time.Time
	}
	Option func(*Handler)
)

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		h.l = l
	}
}

func NewHandler(lookup *utils.SessionLookup, opts ...Option) *Handler {
	ret := &Handler{
		lookup:    lookup,
		l:         log.Default().Named("api"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// SetupRoutes registers all routes on the router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.healthz)
	api := router.Group("/api/v1")
	{
		api.POST("/sessions", h.registerSession)
		api.GET("/sessions", h.listSessions)
		api.DELETE("/sessions/:key", h.removeSession)
		api.POST("/sessions/:key/samples", h.ingestSample)
		api.GET("/sessions/:key/laps", h.getLaps)
		api.GET("/sessions/:key/fuel", h.getFuel)
		api.GET("/sessions/:key/tire", h.getTire)
		api.GET("/sessions/:key/driver", h.getDriver)
		api.GET("/sessions/:key/strategy", h.getStrategy)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(h.startTime).String(),
	})
}

// session resolves the :key param or aborts with 404.
func (h *Handler) session(c *gin.Context) (*utils.SessionProcessingData, bool) {
	key := c.Param("key")
	spd, err := h.lookup.GetSession(key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found", "key": key})
		return nil, false
	}
	return spd, true
}
