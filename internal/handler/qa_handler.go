package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/service"
)

const maxQuestionRunes = 1000

type QAHandler struct {
	qa      *service.QAService
	topKDef int
	topKMax int
}

func NewQAHandler(qa *service.QAService, topKDefault, topKMax int) *QAHandler {
	return &QAHandler{qa: qa, topKDef: topKDefault, topKMax: topKMax}
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type askResponse struct {
	Success       bool             `json:"success"`
	Answer        string           `json:"answer,omitempty"`
	Citations     []model.Citation `json:"citations"`
	ModelUsed     string           `json:"model_used,omitempty"`
	ChunksUsed    int              `json:"chunks_used,omitempty"`
	ContextTokens int              `json:"context_tokens,omitempty"`
	Error         string           `json:"error,omitempty"`
}

func (h *QAHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, askResponse{Success: false, Citations: []model.Citation{}, Error: "invalid request body"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, askResponse{Success: false, Citations: []model.Citation{}, Error: "question must not be empty"})
		return
	}
	if utf8.RuneCountInString(question) > maxQuestionRunes {
		c.JSON(http.StatusBadRequest, askResponse{Success: false, Citations: []model.Citation{}, Error: "question must be at most 1000 characters"})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.topKDef
	}
	if topK > h.topKMax {
		topK = h.topKMax
	}

	res, err := h.qa.Ask(c.Request.Context(), question, topK)
	if err != nil {
		h.writeAskError(c, err)
		return
	}
	c.JSON(http.StatusOK, askResponse{
		Success:       true,
		Answer:        res.Answer,
		Citations:     ensureCitations(res.Citations),
		ModelUsed:     res.ModelUsed,
		ChunksUsed:    res.ChunksUsed,
		ContextTokens: res.ContextTokens,
	})
}

func (h *QAHandler) writeAskError(c *gin.Context, err error) {
	logutil.GetLogger(c.Request.Context()).Warn("ask failed", zap.Error(err))
	citations := []model.Citation{}
	var genErr *service.GenerationError
	if errors.As(err, &genErr) {
		citations = ensureCitations(genErr.Citations)
	}
	c.JSON(http.StatusOK, askResponse{
		Success:   false,
		Citations: citations,
		Error:     askErrorMessage(err),
	})
}

func askErrorMessage(err error) string {
	var noEligible *llm.NoEligibleModelError
	var allFailed *llm.AllFailedError
	switch {
	case errors.Is(err, service.ErrEmptyStore):
		return service.ErrEmptyStore.Error()
	case errors.Is(err, service.ErrNoRelevantResults):
		return service.ErrNoRelevantResults.Error()
	case errors.As(err, &noEligible):
		return noEligible.Error()
	case errors.As(err, &allFailed):
		return allFailed.Error()
	default:
		return "failed to answer question: " + err.Error()
	}
}

func ensureCitations(cs []model.Citation) []model.Citation {
	if cs == nil {
		return []model.Citation{}
	}
	return cs
}
