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

type CompanyHandler struct {
	companyService service.CompanyService
	tokens         *token.Manager
}

func NewCompanyHandler(companyService service.CompanyService, tokens *token.Manager) *CompanyHandler {
	return &CompanyHandler{companyService: companyService, tokens: tokens}
}

func (h *CompanyHandler) RegisterRoutes(router *gin.RouterGroup) {
	companies := router.Group("/companies")
	companies.Use(middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleManager, model.RoleStaff))
	{
		companies.GET("", h.ListCompanies)
		companies.GET("/:id", h.GetCompany)
		companies.POST("", h.CreateCompany)
		companies.PUT("/:id", h.UpdateCompany)
		companies.DELETE("/:id", h.DeleteCompany)
	}
}

// @Summary      List companies
// @Description  Admins see every company, everyone else only their own
// @Tags         companies
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]model.Company}
// @Router       /companies [get]
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	companies, meta, err := h.companyService.List(c.Request.Context(), middleware.CurrentActor(c), pagination.Parse(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, companies, meta))
}

// @Summary      Get a company
// @Tags         companies
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Company ID"
// @Success      200  {object}  response.Response{data=model.Company}
// @Failure      404  {object}  response.Response
// @Router       /companies/{id} [get]
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	company, err := h.companyService.Get(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, company))
}

// @Summary      Create a company
// @Tags         companies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CompanyRequest  true  "Company"
// @Success      201      {object}  response.Response{data=model.Company}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /companies [post]
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	var req service.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	company, err := h.companyService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, company))
}

// @Summary      Update a company
// @Tags         companies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Company ID"
// @Param        payload  body      service.CompanyRequest  true  "Company"
// @Success      200      {object}  response.Response{data=model.Company}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /companies/{id} [put]
func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	var req service.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	company, err := h.companyService.Update(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, company))
}

// @Summary      Delete a company
// @Tags         companies
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Company ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /companies/{id} [delete]
func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	if err := h.companyService.Delete(c.Request.Context(), middleware.CurrentActor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Company deleted successfully"}))
}
