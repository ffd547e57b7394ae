package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/service"
)

// ChallengeHandlers serves one challenge session
type ChallengeHandlers struct {
	session *service.ChallengeSession
}

func NewChallengeHandlers(session *service.ChallengeSession) *ChallengeHandlers {
	return &ChallengeHandlers{session: session}
}

func (h *ChallengeHandlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.State())
}

func (h *ChallengeHandlers) Load(c *gin.Context) {
	h.respond(c, h.session.Load(c.Request.Context()))
}

func (h *ChallengeHandlers) Next(c *gin.Context) {
	h.respond(c, h.session.Next(c.Request.Context()))
}

func (h *ChallengeHandlers) Reset(c *gin.Context) {
	h.respond(c, h.session.Reset(c.Request.Context()))
}

func (h *ChallengeHandlers) DismissModal(c *gin.Context) {
	h.session.DismissModal()
	h.respond(c, nil)
}

// Answer submits an answer and returns the feedback with the new state
func (h *ChallengeHandlers) Answer(c *gin.Context) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	feedback, err := h.session.Submit(c.Request.Context(), req.Answer)
	if err != nil && !errors.Is(err, core.ErrStaleResponse) {
		abortWithError(c, err, gin.H{"state": h.session.State()})
		return
	}

	body := gin.H{"state": h.session.State()}
	if err == nil {
		body["feedback"] = feedback
	}
	c.JSON(http.StatusOK, body)
}

func (h *ChallengeHandlers) Break(c *gin.Context) {
	options, err := h.session.TakeBreak(c.Request.Context())
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// respond writes the state; a superseded request is not an error
func (h *ChallengeHandlers) respond(c *gin.Context, err error) {
	state := h.session.State()
	if err != nil && !errors.Is(err, core.ErrStaleResponse) {
		abortWithError(c, err, gin.H{"state": state})
		return
	}
	c.JSON(http.StatusOK, state)
}
