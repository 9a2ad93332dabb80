package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/internal/token"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	tokens       *token.Manager
}

func NewAuditHandler(auditService service.AuditService, tokens *token.Manager) *AuditHandler {
	return &AuditHandler{auditService: auditService, tokens: tokens}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleManager)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the newest entries first with their users pre-loaded
// @Summary      Get audit logs
// @Description  Admins see every entry, managers their company's
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        companyId  query     string  false  "Filter by company"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}

	logs, meta, err := h.auditService.List(c.Request.Context(), middleware.CurrentActor(c), companyID, pagination.Parse(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, meta))
}
