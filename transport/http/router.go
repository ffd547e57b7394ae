package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/questhub/ports"
	"github.com/layer-3/questhub/service"
)

// ProofPresenter accepts a signed message for the next wallet connect
type ProofPresenter interface {
	Present(message, signature string)
}

// RouteHistory exposes the navigation side effects issued so far
type RouteHistory interface {
	Current() (string, bool)
	Routes() []string
}

// Services are the process-wide components served over HTTP
type Services struct {
	Session       *service.SessionService
	Wallet        ProofPresenter
	Tokenizer     ports.Tokenizer
	Notifications *service.NotificationStore
	Toasts        *service.ToastProjection
	Dropdown      *service.Dropdown
	Scoreboard    *service.Scoreboard
	Challenges    []*service.ChallengeSession
	History       RouteHistory

	// Quest and Captured are optional; their routes exist only when set.
	Quest    QuestExtras
	Captured PayloadCapture
}

// SetupRouter sets up the Gin router
func SetupRouter(s Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	h := NewHandlers(s)

	auth := router.Group("/auth")
	{
		auth.POST("/signin", h.SignIn)
		auth.POST("/signup", h.SignUp)
		auth.POST("/wallet", h.SignInWithWallet)
		auth.POST("/signout", h.SignOut)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(s.Tokenizer, s.Session))
	{
		api.GET("/me", h.Me)
		api.PATCH("/me", h.UpdateProfile)
		api.POST("/me/wallet", h.LinkWallet)

		api.GET("/notifications", h.Notifications)
		api.POST("/notifications", h.AddNotification)
		api.POST("/notifications/read-all", h.MarkAllRead)
		api.POST("/notifications/:id/read", h.MarkRead)
		api.DELETE("/notifications/:id", h.RemoveNotification)
		api.DELETE("/notifications", h.ClearNotifications)

		api.GET("/toasts", h.Toasts)
		api.POST("/toasts/:id/close", h.CloseToast)
		api.POST("/toasts/:id/click", h.ClickToast)

		api.GET("/dropdown", h.Dropdown)
		api.POST("/dropdown/toggle", h.ToggleDropdown)
		api.POST("/dropdown/outside-click", h.DropdownOutsideClick)
		api.POST("/dropdown/view-all", h.DropdownViewAll)
		api.POST("/dropdown/read-all", h.DropdownMarkAllRead)

		api.GET("/score", h.Score)
		api.GET("/leaderboard", h.Leaderboard)
		api.GET("/navigation", h.Navigation)

		if s.Quest != nil {
			quest := NewQuestHandlers(s.Quest, s.Captured)
			api.POST("/prompt", quest.Prompt)
			api.POST("/evaluate/:id", quest.Evaluate)
			api.GET("/scores/:id", quest.Scores)
			api.GET("/challenge/:id", quest.Challenge)
			api.GET("/fun-facts", quest.FunFacts)
			if s.Captured != nil {
				api.GET("/captured", quest.Captured)
			}
		}

		for _, session := range s.Challenges {
			registerChallenge(api.Group("/"+string(session.Kind())), NewChallengeHandlers(session))
		}
	}

	return router
}

func registerChallenge(g *gin.RouterGroup, h *ChallengeHandlers) {
	g.GET("", h.State)
	g.POST("/load", h.Load)
	g.POST("/answer", h.Answer)
	g.POST("/reset", h.Reset)
	g.GET("/break", h.Break)
	g.POST("/next", h.Next)
	g.POST("/modal/dismiss", h.DismissModal)
}
