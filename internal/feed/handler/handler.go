package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
	"github.com/aegean-labs/stockroom/internal/feed"
)

type FeedHandler struct {
	uc         feed.UseCase
	defaultURL string
	logger     *zap.Logger
}

func NewFeedHandler(uc feed.UseCase, cfg *config.Config, log *zap.Logger) *FeedHandler {
	return &FeedHandler{
		uc:         uc,
		defaultURL: cfg.Feed.DefaultURL,
		logger:     log,
	}
}

func (h *FeedHandler) RegisterRoutes(r gin.IRouter) {
	group := r.Group("/feed")
	{
		group.POST("/test", h.TestURL)
		group.POST("/import", h.Import)
	}
}

type feedRequest struct {
	URL            string `json:"url"`
	UpdateExisting bool   `json:"update_existing"`
}

func (h *FeedHandler) resolveURL(c *gin.Context, req *feedRequest) (string, bool) {
	url := req.URL
	if url == "" {
		url = h.defaultURL
	}
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no feed url given and no default configured"})
		return "", false
	}
	return url, true
}

func (h *FeedHandler) TestURL(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	url, ok := h.resolveURL(c, &req)
	if !ok {
		return
	}

	probe, err := h.uc.TestURL(c.Request.Context(), url)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, probe)
}

func (h *FeedHandler) Import(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	url, ok := h.resolveURL(c, &req)
	if !ok {
		return
	}

	summary, err := h.uc.Import(c.Request.Context(), url, &feed.Options{UpdateExisting: req.UpdateExisting})
	if err != nil {
		h.logger.Error("feed import failed", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
