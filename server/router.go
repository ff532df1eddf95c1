package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/server/middlewares"
	"github.com/medveille/veille-backend/session"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Gateway  *gateway.PgGateway
	Sessions *session.Store
	Secret   []byte
}

// NewRouter wires the public auth routes and the JWT-protected API.
func NewRouter(deps Deps) *gin.Engine {
	// Default with the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.Default())

	auth := router.Group("/auth")
	{
		auth.POST("/signup", SignUpHandler(deps.Sessions))
		auth.POST("/signin", SignInHandler(deps.Sessions))
		auth.POST("/anonymous", AnonymousHandler(deps.Sessions))
	}

	api := router.Group("/", middlewares.JWT(deps.Secret))
	{
		api.POST("/auth/link", LinkAccountHandler(deps.Sessions))

		api.GET("/articles", ArticlesHandler(deps.Gateway))
		api.GET("/articles/today", ArticleOfTheDayHandler(deps.Gateway))
		api.POST("/articles/:id/interactions/:kind", AddInteractionHandler(deps.Gateway))
		api.DELETE("/articles/:id/interactions/:kind", RemoveInteractionHandler(deps.Gateway))

		api.GET("/taxonomy/disciplines", DisciplinesHandler(deps.Gateway))
		api.GET("/taxonomy/disciplines/:id/subdisciplines", SubDisciplinesHandler(deps.Gateway))
		api.GET("/taxonomy/subscriptions", SubscriptionTreeHandler(deps.Gateway))

		api.GET("/profile", GetProfileHandler(deps.Gateway))
		api.PUT("/profile", UpdateProfileHandler(deps.Gateway))
		api.PUT("/profile/subscriptions", ReplaceSubscriptionsHandler(deps.Gateway))

		api.POST("/push/token", RegisterTokenHandler(deps.Gateway))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"message": "Veille server - API not found"})
	})

	return router
}
