package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docqa/docqa/internal/service"
)

type StatsHandler struct {
	ingest        *service.IngestService
	qa            *service.QAService
	apiKeyPresent bool
}

func NewStatsHandler(ingest *service.IngestService, qa *service.QAService, apiKeyPresent bool) *StatsHandler {
	return &StatsHandler{ingest: ingest, qa: qa, apiKeyPresent: apiKeyPresent}
}

type statsResponse struct {
	TotalChunks   int      `json:"total_chunks"`
	IndexSize     int      `json:"index_size"`
	Dimension     int      `json:"dimension"`
	Model         string   `json:"model"`
	AvailableLLMs []string `json:"available_llms"`
}

func (h *StatsHandler) Stats(c *gin.Context) {
	st := h.ingest.Stats()
	models := h.qa.AvailableModels()
	if models == nil {
		models = []string{}
	}
	c.JSON(http.StatusOK, statsResponse{
		TotalChunks:   st.TotalChunks,
		IndexSize:     st.IndexSize,
		Dimension:     st.Dimension,
		Model:         st.Model,
		AvailableLLMs: models,
	})
}

func (h *StatsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"api_key_configured": h.apiKeyPresent,
	})
}

func (h *StatsHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "docqa",
		"message": "document question answering service",
		"endpoints": gin.H{
			"upload": "POST /upload",
			"ask":    "POST /ask",
			"stats":  "GET /stats",
			"clear":  "POST /clear",
			"health": "GET /health",
		},
	})
}
