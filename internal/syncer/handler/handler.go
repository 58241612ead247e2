package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/internal/runlog"
	"github.com/aegean-labs/stockroom/internal/syncer"
)

type SyncHandler struct {
	uc     syncer.UseCase
	runs   runlog.Repository
	logger *zap.Logger
}

func NewSyncHandler(uc syncer.UseCase, runs runlog.Repository, log *zap.Logger) *SyncHandler {
	return &SyncHandler{
		uc:     uc,
		runs:   runs,
		logger: log,
	}
}

func (h *SyncHandler) RegisterRoutes(r gin.IRouter) {
	sync := r.Group("/sync")
	{
		sync.POST("/step", h.Step)
		sync.POST("/run", h.Run)
		sync.GET("/status", h.Status)
		sync.POST("/reset", h.Reset)
		sync.GET("/logs", h.Logs)
	}
}

// Step processes one catalog page and returns a continuation token while
// pages remain. Clients call it repeatedly to drive an interactive sync.
func (h *SyncHandler) Step(c *gin.Context) {
	full := c.Query("full") == "true"

	result, err := h.uc.Step(c.Request.Context(), full)
	if err != nil {
		h.logger.Error("sync step failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Run drives a sync to completion in a single request.
func (h *SyncHandler) Run(c *gin.Context) {
	full := c.Query("full") == "true"

	result, err := h.uc.RunComplete(c.Request.Context(), full)
	if err != nil {
		h.logger.Error("sync run failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SyncHandler) Status(c *gin.Context) {
	state, err := h.uc.Progress(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *SyncHandler) Reset(c *gin.Context) {
	if err := h.uc.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *SyncHandler) Logs(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	entries, err := h.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
