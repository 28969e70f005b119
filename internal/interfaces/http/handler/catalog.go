package handler

import (
	"context"
	"net/http"

	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// CategoryStore persists categories
type CategoryStore interface {
	Save(ctx context.Context, c catalog.Category) (string, error)
	Delete(ctx context.Context, id string) error
}

// ProductStore persists products
type ProductStore interface {
	Save(ctx context.Context, p catalog.Product) (string, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStore persists the business profile
type ProfileStore interface {
	Get(ctx context.Context) (venue.Profile, error)
	Save(ctx context.Context, p venue.Profile) error
}

// CatalogHandler manages the menu and the business profile
type CatalogHandler struct {
	BaseHandler
	categories CategoryStore
	products   ProductStore
	profile    ProfileStore
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(categories CategoryStore, products ProductStore, profile ProfileStore) *CatalogHandler {
	return &CatalogHandler{categories: categories, products: products, profile: profile}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/categories", h.SaveCategory)
	rg.DELETE("/categories/:id", h.DeleteCategory)
	rg.POST("/products", h.SaveProduct)
	rg.DELETE("/products/:id", h.DeleteProduct)
	rg.PUT("/profile", h.SaveProfile)
}

// SaveCategory creates or updates a category
func (h *CatalogHandler) SaveCategory(c *gin.Context) {
	var req dto.CategoryDTO
	if !h.BindJSON(c, &req) {
		return
	}
	id, err := h.categories.Save(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.IDResponse{ID: id})
}

// DeleteCategory removes a category; CATEGORY_IN_USE while products reference it
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SaveProduct creates or updates a product
func (h *CatalogHandler) SaveProduct(c *gin.Context) {
	var req dto.ProductDTO
	if !h.BindJSON(c, &req) {
		return
	}
	id, err := h.products.Save(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.IDResponse{ID: id})
}

// DeleteProduct removes a product
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SaveProfile overwrites the business profile
func (h *CatalogHandler) SaveProfile(c *gin.Context) {
	var req dto.ProfileDTO
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.profile.Save(c.Request.Context(), req.ToDomain()); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
