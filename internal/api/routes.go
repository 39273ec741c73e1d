package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"letmeask/internal/api/handlers"
	"letmeask/internal/auth"
	"letmeask/internal/middleware"
	"letmeask/internal/service"
)

// Dependencies 是建立路由所需的元件
type Dependencies struct {
	Services *service.Services
	Issuer   *auth.TokenIssuer
	OAuth    auth.OAuthProvider
	Logger   *slog.Logger
}

// NewRouter 建立帶有日誌與 recovery 中間件的 gin 引擎
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Logger), gin.Recovery())
	SetupRoutes(r, deps)
	return r
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(deps.Services.User, deps.Issuer, deps.OAuth)
	roomHandler := handlers.NewRoomHandler(deps.Services.Room)
	wsHandler := handlers.NewWebSocketHandler(deps.Services.Room)

	// API 路由群組
	api := r.Group("/api")
	api.Use(middleware.SessionMiddleware(deps.Issuer))

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		// Google 登入流程
		api.GET("/auth/google/login", authHandler.GoogleLogin)
		api.GET("/auth/google/callback", authHandler.GoogleCallback)

		// 房間內容任何人都可以讀取
		api.GET("/rooms/:id", roomHandler.GetRoom)
		api.GET("/rooms/:id/ws", wsHandler.HandleWebSocket)
	}

	// 需要登入的路由
	authorized := api.Group("/")
	authorized.Use(middleware.RequireSession())
	{
		authorized.GET("/auth/me", authHandler.Me)

		authorized.POST("/rooms", roomHandler.CreateRoom)
		authorized.POST("/rooms/:id/questions", roomHandler.PushQuestion)
	}
}
