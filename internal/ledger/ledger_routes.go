package ledger

import (
	"leaveledger/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	lg := r.Group("/ledger")
	lg.Use(middleware.AuthMiddleware())
	{
		writes := lg.Group("")
		writes.Use(middleware.RateLimitByTenant(rate.Limit(20), 40))
		{
			writes.POST("/credit", handler.Credit)
			writes.POST("/debit", handler.Debit)
			writes.POST("/transactions", handler.Post)
			writes.POST("/entries/:id/reverse", handler.Reverse)
		}
	}

	emp := r.Group("/employees")
	emp.Use(middleware.AuthMiddleware())
	{
		emp.GET("/:id/balance", handler.GetBalance)
		emp.GET("/:id/entries", handler.ListEntries)
		emp.GET("/:id/leave-types/:leaveTypeId/breakdown", handler.GetBreakdown)
		emp.POST("/:id/leave-types/:leaveTypeId/cache/rebuild", handler.RebuildCache)
	}
}
