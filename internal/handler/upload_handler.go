package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/service"
)

const maxUploadBytes = 5 * 1024 * 1024

type UploadHandler struct {
	ingest *service.IngestService
}

func NewUploadHandler(ingest *service.IngestService) *UploadHandler {
	return &UploadHandler{ingest: ingest}
}

type uploadResponse struct {
	Success            bool   `json:"success"`
	Filename           string `json:"filename,omitempty"`
	ChunksCreated      int    `json:"chunks_created,omitempty"`
	TotalChunksInStore int    `json:"total_chunks_in_store,omitempty"`
	Error              string `json:"error,omitempty"`
}

func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Error: "file is required"})
		return
	}
	filename := file.Filename
	lower := strings.ToLower(filename)
	if !strings.HasSuffix(lower, ".pdf") && !strings.HasSuffix(lower, ".txt") {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Filename: filename, Error: "only .pdf and .txt files are supported"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Filename: filename, Error: "file too large, maximum size is 5MB"})
		return
	}
	opened, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Filename: filename, Error: "failed to read file"})
		return
	}
	defer opened.Close()
	content, err := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Filename: filename, Error: "failed to read file"})
		return
	}
	if len(content) > maxUploadBytes {
		c.JSON(http.StatusBadRequest, uploadResponse{Success: false, Filename: filename, Error: "file too large, maximum size is 5MB"})
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), content, filename)
	if err != nil {
		// Extraction and chunking problems are reported to the caller, not
		// raised through the transport layer.
		logutil.GetLogger(c.Request.Context()).Warn("ingestion failed",
			zap.String("filename", filename),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, uploadResponse{Success: false, Filename: filename, Error: ingestErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, uploadResponse{
		Success:            true,
		Filename:           res.Filename,
		ChunksCreated:      res.ChunksCreated,
		TotalChunksInStore: res.TotalChunks,
	})
}

type clearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *UploadHandler) Clear(c *gin.Context) {
	h.ingest.Clear(c.Request.Context())
	c.JSON(http.StatusOK, clearResponse{Success: true, Message: "all documents cleared"})
}

func ingestErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrExtractionEmpty):
		return service.ErrExtractionEmpty.Error()
	case errors.Is(err, service.ErrChunkingEmpty):
		return service.ErrChunkingEmpty.Error()
	default:
		return "failed to ingest document: " + err.Error()
	}
}
