package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the chat API routes onto a gin engine.
func NewRouter(ragController *RAGController) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), CORS())

	router.POST("/chat", ragController.Chat)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/health", ragController.Health)
		apiV1.GET("/stats", ragController.Stats)
	}
	return router
}

// CORS allows any origin, method and header, with credentials. The request
// origin is echoed back when present.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			methods := c.GetHeader("Access-Control-Request-Method")
			if methods == "" {
				methods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
			}
			headers := c.GetHeader("Access-Control-Request-Headers")
			if headers == "" {
				headers = "*"
			}
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
