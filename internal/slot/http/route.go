package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/slots")

	group.Use(authMiddleware)
	{
		group.POST("", h.Create)
		group.POST("/recurring", h.CreateRecurring)
		group.GET("/available", h.ListAvailable)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
		group.PATCH("/:id/capacity", h.AdjustCapacity)
	}
}
