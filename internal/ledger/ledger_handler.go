package ledger

import (
	"net/http"
	"strconv"

	"leaveledger/internal/shared/apperror"
	"leaveledger/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service  Service
	balances BalanceService
	logger   *zap.Logger
}

func NewHandler(service Service, balances BalanceService, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("ledger.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.handler")
	}
	return &Handler{service: service, balances: balances, logger: l}
}

func getActorID(c *gin.Context) string {
	actorID := c.GetString("employee_id")
	if actorID == "" {
		actorID = c.GetString("user_id")
	}
	return actorID
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("ledger request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Credit(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	actorID := getActorID(c)

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http credit validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.Credit(c.Request.Context(), tenantID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Debit(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	actorID := getActorID(c)

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http debit validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.Debit(c.Request.Context(), tenantID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Post(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	actorID := getActorID(c)

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http post transaction validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.Post(c.Request.Context(), tenantID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Reverse(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	actorID := getActorID(c)
	entryID := c.Param("id")

	resp, err := h.service.Reverse(c.Request.Context(), tenantID, actorID, entryID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetBalance(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	employeeID := c.Param("id")

	cycleYear := 0
	if v := c.Query("cycle_year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "cycle_year must be a number", nil)
			return
		}
		cycleYear = parsed
	}

	items, err := h.balances.GetBalance(c.Request.Context(), tenantID, employeeID, cycleYear)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, items, nil)
}

func (h *Handler) GetBreakdown(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	employeeID := c.Param("id")
	leaveTypeID := c.Param("leaveTypeId")

	cycleYear, err := strconv.Atoi(c.Query("cycle_year"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "cycle_year is required", nil)
		return
	}

	resp, err := h.balances.GetBreakdown(c.Request.Context(), tenantID, employeeID, leaveTypeID, cycleYear)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ListEntries(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	employeeID := c.Param("id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	entries, total, err := h.balances.ListEntries(c.Request.Context(), tenantID, employeeID, pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, entries, &meta)
}

func (h *Handler) RebuildCache(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	employeeID := c.Param("id")
	leaveTypeID := c.Param("leaveTypeId")

	cycleYear, err := strconv.Atoi(c.Query("cycle_year"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "cycle_year is required", nil)
		return
	}

	if err := h.balances.RebuildCache(c.Request.Context(), tenantID, employeeID, leaveTypeID, cycleYear); err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rebuilt": true}, nil)
}
