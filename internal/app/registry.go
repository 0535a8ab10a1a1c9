package app

import (
	"database/sql"

	"leaveledger/internal/employee"
	"leaveledger/internal/ledger"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/messaging/kafka"
	"leaveledger/internal/middleware"
	"leaveledger/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	router.Use(middleware.RequestID())

	// --- Repositories ---
	employeeRepo := employee.NewRepository(gormDB)
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB, db)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Services ---
	readCache := ledger.NewBalanceReadCache(rdb)
	finder := ledger.NewEntryFinder(employeeRepo, leaveTypeRepo)
	ledgerService := ledger.NewService(db, ledgerRepo, outboxRepo, finder, readCache)
	balanceService := ledger.NewBalanceService(db, ledgerRepo, employeeRepo, leaveTypeRepo, readCache)
	schedulerService := scheduler.NewService(employeeRepo, leaveTypeRepo, ledgerService)

	// --- Handlers ---
	ledgerHandler := ledger.NewHandler(ledgerService, balanceService)
	schedulerHandler := scheduler.NewHandler(schedulerService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		ledger.RegisterRoutes(api, ledgerHandler)
		scheduler.RegisterRoutes(api, schedulerHandler)
	}

	return nil
}
