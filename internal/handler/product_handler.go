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

type ProductHandler struct {
	productService service.ProductService
	tokens         *token.Manager
}

func NewProductHandler(productService service.ProductService, tokens *token.Manager) *ProductHandler {
	return &ProductHandler{productService: productService, tokens: tokens}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	products.Use(middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleManager, model.RoleStaff))
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

// @Summary      List products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        companyId  query     string  false  "Company (required for admins)"
// @Param        search     query     string  false  "Match on name or SKU"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]model.Product}
// @Router       /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}

	products, meta, err := h.productService.List(c.Request.Context(), middleware.CurrentActor(c), service.ProductListQuery{
		CompanyID: companyID,
		Search:    c.Query("search"),
		Page:      pagination.Parse(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, products, meta))
}

// @Summary      Get a product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id         path      string  true   "Product ID"
// @Param        companyId  query     string  false  "Company (required for admins)"
// @Success      200        {object}  response.Response{data=model.Product}
// @Failure      404        {object}  response.Response
// @Router       /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), companyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// @Summary      Create a product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.productService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// @Summary      Update a product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Product ID"
// @Param        payload  body      service.ProductRequest  true  "Product"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.productService.Update(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// @Summary      Delete a product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id         path      string  true   "Product ID"
// @Param        companyId  query     string  false  "Company (required for admins)"
// @Success      200        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	companyID, ok := companyQuery(c)
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), companyID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Product deleted successfully"}))
}
