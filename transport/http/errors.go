package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questhub/core"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrNotAuthenticated),
		errors.Is(err, core.ErrWalletConnectionFailed),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmailTaken),
		errors.Is(err, core.ErrUsernameTaken),
		errors.Is(err, core.ErrWalletInUse),
		errors.Is(err, core.ErrDuplicateNotification),
		errors.Is(err, core.ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmptyAnswer),
		errors.Is(err, core.ErrInvalidAddress),
		errors.Is(err, core.ErrInvalidIdentity),
		errors.Is(err, core.ErrNoChallenge),
		errors.Is(err, core.ErrChallengeExhausted),
		errors.Is(err, core.ErrInvalidReward):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNetworkFailure):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrSessionClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error, extra gin.H) {
	body := gin.H{"error": core.UserMessage(err)}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(statusFor(err), body)
}

func badRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}
