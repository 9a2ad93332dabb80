package handler

import (
	"errors"
	"net/http"

	"backoffice/internal/fiscal"
	"backoffice/internal/logger"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError maps service and engine errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without internals.
func writeError(c *gin.Context, err error) {
	if verr, ok := fiscal.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(http.StatusBadRequest, "Validation failed", verr.Violations))
		return
	}

	var noRule *fiscal.NoApplicableRuleError
	switch {
	case errors.As(err, &noRule):
		c.JSON(http.StatusNotFound, response.ErrorWithDetails(http.StatusNotFound, err.Error(), gin.H{"uf": noRule.UF, "regime": noRule.Regime}))
	case errors.Is(err, fiscal.ErrRuleNotFound), errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, fiscal.ErrInvalidRuleID), errors.Is(err, service.ErrCompanyRequired), errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		logger.FromGin(c).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// companyQuery reads the optional companyId query parameter.
func companyQuery(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("companyId")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "companyId must be a UUID"))
		return nil, false
	}
	return &id, true
}
