package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
	"github.com/layer-3/questhub/service"
)

const userIDKey = "userID"

// AuthMiddleware accepts bearer tokens issued for the identity currently
// signed in to the session.
func AuthMiddleware(tokenizer ports.Tokenizer, session *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if !strings.HasPrefix(auth, "Bearer ") || len(auth) < 8 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		id, err := tokenizer.TokenToIdentityID(auth[7:])
		if err != nil {
			if err == core.ErrTokenExpired {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		// tokens outlive sign-out; only the current identity's token is accepted
		current := session.Current()
		if current == nil || current.ID != id {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.UserMessage(core.ErrNotAuthenticated)})
			return
		}

		c.Set(userIDKey, id)
		c.Next()
	}
}
