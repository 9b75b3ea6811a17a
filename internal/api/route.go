package api

import (
	"Atrium/internal/api/middleware"
	"Atrium/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		chatGroup := apiGroup.Group("/chat")
		{
			// 匿名会话签发不要求令牌
			chatGroup.POST("/session", group.ChatHandler.Session)

			visitorGroup := chatGroup.Group("")
			visitorGroup.Use(middleware.VisitorAuthMiddleware())
			{
				visitorGroup.POST("/intake", group.ChatHandler.Intake)
				visitorGroup.POST("/send", group.ChatHandler.Send)
				visitorGroup.POST("/typing", group.ChatHandler.Typing)
				visitorGroup.POST("/panel", group.ChatHandler.Panel)
				visitorGroup.GET("/history", group.ChatHandler.History)
				visitorGroup.GET("/ws", group.WsHandler.ChatConnect)
			}
		}

		inboxGroup := apiGroup.Group("/inbox")
		{
			inboxGroup.POST("/login", group.AuthHandler.Login)

			authGroup := inboxGroup.Group("")
			authGroup.Use(middleware.OperatorAuthMiddleware())
			{
				authGroup.POST("/logout", group.AuthHandler.Logout)
				authGroup.GET("/conversations", group.InboxHandler.Conversations)
				authGroup.GET("/messages", group.InboxHandler.Messages)
				authGroup.POST("/read", group.InboxHandler.Read)
				authGroup.POST("/reply", group.InboxHandler.Reply)
				authGroup.POST("/typing", group.InboxHandler.Typing)
				authGroup.DELETE("/message", group.InboxHandler.DeleteMessage)
				authGroup.GET("/ws", group.WsHandler.InboxConnect)
			}
		}
	}

	return r
}
