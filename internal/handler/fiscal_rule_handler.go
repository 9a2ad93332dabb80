package handler

import (
	"net/http"

	"backoffice/internal/fiscal"
	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/internal/token"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type FiscalRuleHandler struct {
	ruleService       service.FiscalRuleService
	resolutionService service.ResolutionService
	tokens            *token.Manager
}

func NewFiscalRuleHandler(ruleService service.FiscalRuleService, resolutionService service.ResolutionService, tokens *token.Manager) *FiscalRuleHandler {
	return &FiscalRuleHandler{ruleService: ruleService, resolutionService: resolutionService, tokens: tokens}
}

func (h *FiscalRuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/fiscal-rules")
	rules.Use(middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleManager, model.RoleStaff))
	{
		rules.GET("", h.ListRules)
		rules.GET("/defaults", h.GetDefaults)
		rules.GET("/:id", h.GetRule)
		rules.POST("/resolve", h.Resolve)
		rules.POST("/simulate", h.Simulate)
	}

	writes := router.Group("/fiscal-rules")
	writes.Use(middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleManager))
	{
		writes.POST("", h.CreateRule)
		writes.POST("/validate", h.ValidateRule)
		writes.POST("/import", h.ImportRules)
		writes.PUT("/:id", h.UpdateRule)
		writes.DELETE("/:id", h.DeleteRule)
	}
}

// ListRules godoc
// @Summary      List fiscal rules
// @Description  Paginated rules visible in the caller's scope: platform defaults plus the company's own
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Produce      json
// @Param        companyId  query     string  false  "Company scope (admins only)"
// @Param        uf         query     string  false  "Destination UF"
// @Param        regime     query     string  false  "NORMAL or SIMPLES"
// @Param        mode       query     string  false  "TRIBUTADO, ICMS_ST or ISENTO"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.RuleResponse}
// @Failure      403        {object}  response.Response
// @Router       /fiscal-rules [get]
func (h *FiscalRuleHandler) ListRules(c *gin.Context) {
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}

	rules, meta, err := h.ruleService.List(c.Request.Context(), middleware.CurrentActor(c), service.RuleListQuery{
		CompanyID: companyID,
		UF:        c.Query("uf"),
		Regime:    c.Query("regime"),
		Mode:      c.Query("mode"),
		Page:      pagination.Parse(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rules, meta))
}

// GetRule godoc
// @Summary      Get a fiscal rule
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response{data=service.RuleResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /fiscal-rules/{id} [get]
func (h *FiscalRuleHandler) GetRule(c *gin.Context) {
	rule, err := h.ruleService.Get(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// CreateRule godoc
// @Summary      Create a fiscal rule
// @Description  Validates the draft and stores it. Managers always create for their own company.
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      fiscal.Draft  true  "Rule draft"
// @Success      201      {object}  response.Response{data=service.RuleResponse}
// @Failure      400      {object}  response.Response{details=[]fiscal.Violation}
// @Failure      403      {object}  response.Response
// @Router       /fiscal-rules [post]
func (h *FiscalRuleHandler) CreateRule(c *gin.Context) {
	var draft fiscal.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		bindError(c, err)
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), middleware.CurrentActor(c), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule godoc
// @Summary      Replace a fiscal rule
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string        true  "Rule ID"
// @Param        payload  body      fiscal.Draft  true  "Rule draft"
// @Success      200      {object}  response.Response{data=service.RuleResponse}
// @Failure      400      {object}  response.Response{details=[]fiscal.Violation}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /fiscal-rules/{id} [put]
func (h *FiscalRuleHandler) UpdateRule(c *gin.Context) {
	var draft fiscal.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		bindError(c, err)
		return
	}

	rule, err := h.ruleService.Update(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule godoc
// @Summary      Delete a fiscal rule
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /fiscal-rules/{id} [delete]
func (h *FiscalRuleHandler) DeleteRule(c *gin.Context) {
	if err := h.ruleService.Delete(c.Request.Context(), middleware.CurrentActor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Fiscal rule deleted successfully"}))
}

// ValidateRule godoc
// @Summary      Dry-run rule validation
// @Description  Reports every violation of the draft without saving it
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      fiscal.Draft  true  "Rule draft"
// @Success      200      {object}  response.Response{data=fiscal.ValidationResult}
// @Router       /fiscal-rules/validate [post]
func (h *FiscalRuleHandler) ValidateRule(c *gin.Context) {
	var draft fiscal.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		bindError(c, err)
		return
	}

	res := h.ruleService.Validate(draft)
	if res.Violations == nil {
		res.Violations = []fiscal.Violation{}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"valid": res.Valid(), "violations": res.Violations}))
}

// ImportRules godoc
// @Summary      Import fiscal rules
// @Description  Validates every draft and stores all of them in one transaction, or none
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ImportRequest  true  "Rule drafts"
// @Success      201      {object}  response.Response{data=service.ImportResult}
// @Failure      400      {object}  response.Response{details=[]fiscal.Violation}
// @Router       /fiscal-rules/import [post]
func (h *FiscalRuleHandler) ImportRules(c *gin.Context) {
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ruleService.Import(c.Request.Context(), middleware.CurrentActor(c), req.Rules)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// Resolve godoc
// @Summary      Resolve the fiscal treatment
// @Description  Selects the applicable rule for the UF and regime in the caller's scope
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ResolveRequest  true  "Resolution context"
// @Success      200      {object}  response.Response{data=fiscal.Outcome}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /fiscal-rules/resolve [post]
func (h *FiscalRuleHandler) Resolve(c *gin.Context) {
	var req service.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	outcome, err := h.resolutionService.Resolve(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, outcome))
}

// Simulate godoc
// @Summary      Simulate a resolution for a product
// @Description  Same selection as resolve; the product only adds NCM/CEST context
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SimulateRequest  true  "Simulation context"
// @Success      200      {object}  response.Response{data=fiscal.Simulation}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /fiscal-rules/simulate [post]
func (h *FiscalRuleHandler) Simulate(c *gin.Context) {
	var req service.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	sim, err := h.resolutionService.Simulate(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sim))
}

// GetDefaults godoc
// @Summary      Default code table
// @Description  CST/CSOSN used when a rule leaves its code empty, for form pre-fill
// @Tags         fiscal-rules
// @Security     BearerAuth
// @Produce      json
// @Param        regime  query     string  false  "NORMAL or SIMPLES"
// @Param        mode    query     string  false  "TRIBUTADO, ICMS_ST or ISENTO"
// @Success      200     {object}  response.Response{data=[]fiscal.DefaultCodeEntry}
// @Failure      400     {object}  response.Response
// @Router       /fiscal-rules/defaults [get]
func (h *FiscalRuleHandler) GetDefaults(c *gin.Context) {
	entries, err := h.resolutionService.Defaults(c.Query("regime"), c.Query("mode"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
