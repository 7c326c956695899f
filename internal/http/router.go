package http

import (
	"net/http"

	"talecraft_client/internal/app"
	"talecraft_client/internal/http/handlers"
	"talecraft_client/internal/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes подключает локальный API для UI
func RegisterRoutes(r *gin.Engine, a *app.App, allowedOrigin string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": a.Version(),
			"wallet":  a.WalletState(),
		})
	})

	wsHandler := ws.NewWSHandler(a.Hub(), a.Snapshot, allowedOrigin)
	r.GET("/ws", wsHandler.HandleWS())

	games := handlers.NewGameHandler(a)
	market := handlers.NewMarketHandler(a.Indexer(), a)
	wallet := handlers.NewWalletHandler(a)
	prefs := handlers.NewPreferenceHandler(a.Preferences(), a.Notifications())
	chat := handlers.NewChatHandler(a, a.Chat())

	api := r.Group("/api")

	api.GET("/leagues", games.Leagues)
	league := api.Group("/leagues/:league")
	{
		league.GET("/game", games.Game)
		league.GET("/events", games.Events)
		league.GET("/history", games.PastGames)
		league.GET("/records", games.Records)
		league.GET("/leaderboard", market.GameLeaderboard)

		league.POST("/join", games.Join)
		league.POST("/leave", games.Leave)
		league.POST("/place", games.Place)
		league.POST("/power", games.Power)
		league.POST("/boost", games.Boost)
		league.POST("/abort", games.Abort)
		league.POST("/spectate", games.Spectate)
	}

	api.GET("/inventory", wallet.Inventory)
	api.GET("/resources/:token_id", market.Resource)
	api.GET("/resources/:token_id/recipe", market.Recipe)
	api.GET("/market/listings", market.Listings)
	api.GET("/market/stats", market.Stats)
	api.GET("/lending/listings", market.Lending)
	api.GET("/leaderboard", market.Leaderboard)
	api.GET("/settings", market.Settings)

	api.GET("/preferences", prefs.Get)
	api.PUT("/preferences", prefs.Update)
	api.GET("/notifications", prefs.Notifications)
	api.POST("/notifications/permission", prefs.Permission)

	api.GET("/wallet", wallet.Get)
	api.POST("/wallet/connect", wallet.Connect)
	api.POST("/wallet/disconnect", wallet.Disconnect)
	api.GET("/wallet/transactions", wallet.Transactions)

	api.POST("/chat/:chat_id/join", chat.Join)
	api.POST("/chat/leave", chat.Leave)
	api.GET("/chat/messages", chat.Messages)
	api.POST("/chat/messages", chat.Send)
}
