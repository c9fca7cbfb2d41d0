package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ecommerce/internal/catalog/application"
	"github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// CatalogHandler HTTP 处理器
type CatalogHandler struct {
	app *application.CatalogApplicationService
}

// NewCatalogHandler 创建 HTTP 处理器实例
func NewCatalogHandler(app *application.CatalogApplicationService) *CatalogHandler {
	return &CatalogHandler{app: app}
}

// 注册路由
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/v1/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.PATCH("/:id", h.UpdateProduct)
		products.POST("/:id/publish", h.PublishProduct)
		products.POST("/:id/archive", h.ArchiveProduct)
		products.PUT("/:id/stock", h.SetStock)
		products.GET("/sku/:sku", h.GetProductBySKU)
	}
	categories := router.Group("/api/v1/categories")
	{
		categories.POST("", h.CreateCategory)
		categories.GET("", h.ListCategories)
		categories.GET("/:id", h.GetCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}
}

// statusOf 领域错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSKUAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNegativeStock), errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrProductUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	SKU         string  `json:"sku" binding:"required"`
	Price       float64 `json:"price" binding:"required"`
	Stock       int     `json:"stock"`
	CategoryID  string  `json:"category_id"`
}

// CreateProduct 创建商品
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	product, err := h.app.CreateProduct(c.Request.Context(), application.CreateProductCommand{
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Price:       decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to create product", "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, product)
}

// UpdateProductRequest 部分更新商品请求，缺省字段不修改
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Status      *string  `json:"status"`
	CategoryID  *string  `json:"category_id"`
}

// UpdateProduct 部分更新商品
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}
	if req.Price != nil {
		price := decimal.NewFromFloat(*req.Price)
		patch.Price = &price
	}
	if req.Status != nil {
		status := domain.ProductStatus(*req.Status)
		patch.Status = &status
	}

	product, err := h.app.UpdateProduct(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, product)
}

// GetProduct 获取商品详情
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.app.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, product)
}

// GetProductBySKU 按 SKU 获取商品
func (h *CatalogHandler) GetProductBySKU(c *gin.Context) {
	product, err := h.app.GetProductBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, product)
}

// ListProducts 商品列表
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var query struct {
		CategoryID string `form:"category_id"`
		Status     string `form:"status"`
		Page       int    `form:"page,default=1"`
		Limit      int    `form:"limit,default=20"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	offset := (query.Page - 1) * query.Limit
	if offset < 0 {
		offset = 0
	}
	products, total, err := h.app.ListProducts(c.Request.Context(), domain.ProductListFilter{
		CategoryID: query.CategoryID,
		Status:     domain.ProductStatus(query.Status),
		Offset:     offset,
		Limit:      query.Limit,
	})
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"products": products, "total": total})
}

// PublishProduct 上架商品
func (h *CatalogHandler) PublishProduct(c *gin.Context) {
	if err := h.app.PublishProduct(c.Request.Context(), c.Param("id")); err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"product_id": c.Param("id")})
}

// ArchiveProduct 下架商品
func (h *CatalogHandler) ArchiveProduct(c *gin.Context) {
	if err := h.app.ArchiveProduct(c.Request.Context(), c.Param("id")); err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"product_id": c.Param("id")})
}

// SetStockRequest 设置库存请求
type SetStockRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// SetStock 管理端设置库存
func (h *CatalogHandler) SetStock(c *gin.Context) {
	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	product, err := h.app.SetStock(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, product)
}

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
}

// CreateCategory 创建分类
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	category, err := h.app.CreateCategory(c.Request.Context(), req.Name, req.Description, req.ParentID)
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, category)
}

// GetCategory 获取分类
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	category, err := h.app.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, category)
}

// ListCategories 列出子分类，parent_id 为空时返回顶级分类
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.app.ListCategories(c.Request.Context(), c.Query("parent_id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, categories)
}

// DeleteCategory 删除分类
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.app.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"category_id": c.Param("id")})
}
