package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questhub/core"
)

// QuestExtras are the Quest API calls passed through to the UI as is
type QuestExtras interface {
	Prompt(ctx context.Context, duration int, timeUnit string) (json.RawMessage, error)
	Evaluate(ctx context.Context, id, filename string, pdf io.Reader) (json.RawMessage, error)
	Scores(ctx context.Context, id string) (json.RawMessage, error)
	Challenge(ctx context.Context, id string) (json.RawMessage, error)
	FunFacts(ctx context.Context) ([]string, error)
}

// PayloadCapture returns the last payload seen for a Quest API endpoint
type PayloadCapture interface {
	Last(endpoint string) (json.RawMessage, bool)
}

// QuestHandlers serves the Quest API pass-through endpoints
type QuestHandlers struct {
	quest    QuestExtras
	captured PayloadCapture
}

func NewQuestHandlers(quest QuestExtras, captured PayloadCapture) *QuestHandlers {
	return &QuestHandlers{quest: quest, captured: captured}
}

func (h *QuestHandlers) Prompt(c *gin.Context) {
	var req struct {
		Duration int    `json:"duration" binding:"required,gt=0"`
		TimeUnit string `json:"time_unit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	raw, err := h.quest.Prompt(c.Request.Context(), req.Duration, req.TimeUnit)
	h.respond(c, raw, err)
}

// Evaluate forwards the uploaded "file" form field
func (h *QuestHandlers) Evaluate(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c)
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c)
		return
	}
	defer file.Close()

	raw, err := h.quest.Evaluate(c.Request.Context(), c.Param("id"), header.Filename, file)
	h.respond(c, raw, err)
}

func (h *QuestHandlers) Scores(c *gin.Context) {
	raw, err := h.quest.Scores(c.Request.Context(), c.Param("id"))
	h.respond(c, raw, err)
}

func (h *QuestHandlers) Challenge(c *gin.Context) {
	raw, err := h.quest.Challenge(c.Request.Context(), c.Param("id"))
	h.respond(c, raw, err)
}

func (h *QuestHandlers) FunFacts(c *gin.Context) {
	facts, err := h.quest.FunFacts(c.Request.Context())
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": facts})
}

// Captured returns the last payload of ?endpoint=
func (h *QuestHandlers) Captured(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		badRequest(c)
		return
	}
	raw, ok := h.captured.Last(endpoint)
	if !ok {
		abortWithError(c, core.ErrNotFound, nil)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *QuestHandlers) respond(c *gin.Context, raw json.RawMessage, err error) {
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	c.Data(http.StatusOK, "application/json", raw)
}
