package scheduler

import (
	"leaveledger/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	grp := r.Group("/credit-cycles")
	grp.Use(middleware.AuthMiddleware())
	grp.Use(middleware.RateLimitByIP(rate.Limit(1), 2))
	{
		grp.POST("/run", handler.Run)
	}
}
