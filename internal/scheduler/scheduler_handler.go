package scheduler

import (
	"net/http"
	"time"

	"leaveledger/internal/leavetype"
	"leaveledger/internal/shared/apperror"
	"leaveledger/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RunRequest struct {
	Date        string   `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Frequencies []string `json:"frequencies" binding:"omitempty,dive,oneof=monthly quarterly half_yearly yearly"`
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("scheduler.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("scheduler.handler")
	}
	return &Handler{service: service, logger: l}
}

// Run triggers a crediting sweep on demand. Duplicate-safe: the processor
// skips scopes already credited in the bucket.
func (h *Handler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.logger.Warn("http run credit cycle validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	asOf := time.Time{}
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.logger.Warn("http run credit cycle invalid date", zap.String("date", req.Date), zap.Error(err))
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", "date must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	freqs := req.Frequencies
	if len(freqs) == 0 {
		freqs = []string{
			leavetype.FrequencyMonthly,
			leavetype.FrequencyQuarterly,
			leavetype.FrequencyHalfYearly,
			leavetype.FrequencyYearly,
		}
	}

	summary, err := h.service.RunCreditCycle(c.Request.Context(), asOf, freqs)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	response.Success(c, http.StatusOK, summary, nil)
}
