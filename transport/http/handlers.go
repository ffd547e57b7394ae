package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questhub/core"
)

const defaultLeaderboardSize = 10

// Handlers contains HTTP handlers for the session and notification endpoints
type Handlers struct {
	s Services
}

// NewHandlers creates new handlers
func NewHandlers(s Services) *Handlers {
	return &Handlers{s: s}
}

type signedMessage struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// SignIn handles email sign in
func (h *Handlers) SignIn(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	identity, err := h.s.Session.SignInWithEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	h.issueToken(c, identity)
}

// SignUp handles email registration
func (h *Handlers) SignUp(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	identity, err := h.s.Session.SignUpWithEmail(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	h.issueToken(c, identity)
}

// SignInWithWallet verifies a signed message and signs in its signer
func (h *Handlers) SignInWithWallet(c *gin.Context) {
	var req signedMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	h.s.Wallet.Present(req.Message, req.Signature)
	if err := h.s.Session.SignInWithWallet(c.Request.Context()); err != nil {
		abortWithError(c, err, nil)
		return
	}
	h.issueToken(c, h.s.Session.Current())
}

// SignOut ends the session. Side-effect failures do not fail the request.
func (h *Handlers) SignOut(c *gin.Context) {
	_ = h.s.Session.SignOut(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (h *Handlers) issueToken(c *gin.Context, identity *core.Identity) {
	if identity == nil {
		abortWithError(c, core.ErrNotAuthenticated, nil)
		return
	}
	token, err := h.s.Tokenizer.IdentityToToken(identity)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"user":       identity,
	})
}

// Me returns the session state
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, h.s.Session.Snapshot())
}

// UpdateProfile applies a partial profile update
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var update core.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c)
		return
	}

	identity, err := h.s.Session.UpdateProfile(c.Request.Context(), update)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// LinkWallet attaches a signed-in wallet to the current identity
func (h *Handlers) LinkWallet(c *gin.Context) {
	var req signedMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	h.s.Wallet.Present(req.Message, req.Signature)
	identity, err := h.s.Session.LinkWallet(c.Request.Context())
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *Handlers) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.s.Notifications.Snapshot())
}

// AddNotification records a notification produced by the UI or a quest flow
func (h *Handlers) AddNotification(c *gin.Context) {
	var n core.Notification
	if err := c.ShouldBindJSON(&n); err != nil || !n.Kind.Valid() {
		badRequest(c)
		return
	}

	id, err := h.s.Notifications.Add(n)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handlers) MarkAllRead(c *gin.Context) {
	h.s.Notifications.MarkAllRead()
	c.JSON(http.StatusOK, h.s.Notifications.Snapshot())
}

func (h *Handlers) MarkRead(c *gin.Context) {
	if err := h.s.Notifications.MarkRead(c.Param("id")); err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.s.Notifications.Snapshot())
}

func (h *Handlers) RemoveNotification(c *gin.Context) {
	if err := h.s.Notifications.Remove(c.Param("id")); err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.s.Notifications.Snapshot())
}

func (h *Handlers) ClearNotifications(c *gin.Context) {
	h.s.Notifications.Clear()
	c.JSON(http.StatusOK, h.s.Notifications.Snapshot())
}

func (h *Handlers) Toasts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"toasts": h.s.Toasts.Toasts()})
}

func (h *Handlers) CloseToast(c *gin.Context) {
	h.s.Toasts.Close(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"toasts": h.s.Toasts.Toasts()})
}

// ClickToast marks the toast's notification read and reports where to go
func (h *Handlers) ClickToast(c *gin.Context) {
	route, err := h.s.Toasts.Click(c.Param("id"))
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route})
}

func (h *Handlers) Dropdown(c *gin.Context) {
	c.JSON(http.StatusOK, h.s.Dropdown.View())
}

func (h *Handlers) ToggleDropdown(c *gin.Context) {
	h.s.Dropdown.Toggle()
	c.JSON(http.StatusOK, h.s.Dropdown.View())
}

func (h *Handlers) DropdownOutsideClick(c *gin.Context) {
	h.s.Dropdown.OutsideClick()
	c.JSON(http.StatusOK, h.s.Dropdown.View())
}

func (h *Handlers) DropdownViewAll(c *gin.Context) {
	h.s.Dropdown.ViewAll()
	c.JSON(http.StatusOK, h.s.Dropdown.View())
}

func (h *Handlers) DropdownMarkAllRead(c *gin.Context) {
	h.s.Dropdown.MarkAllRead()
	c.JSON(http.StatusOK, h.s.Dropdown.View())
}

// Score returns the caller's total and rank
func (h *Handlers) Score(c *gin.Context) {
	userID := c.GetString(userIDKey)
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"total":   h.s.Scoreboard.Total(userID),
		"rank":    h.s.Scoreboard.Rank(userID),
	})
}

func (h *Handlers) Leaderboard(c *gin.Context) {
	n := defaultLeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c)
			return
		}
		n = v
	}
	c.JSON(http.StatusOK, gin.H{"entries": h.s.Scoreboard.Leaderboard(n)})
}

func (h *Handlers) Navigation(c *gin.Context) {
	current, _ := h.s.History.Current()
	c.JSON(http.StatusOK, gin.H{
		"current": current,
		"history": h.s.History.Routes(),
	})
}
