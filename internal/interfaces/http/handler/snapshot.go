package handler

import (
	"context"

	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SnapshotSource reads the full authoritative state
type SnapshotSource interface {
	Read(ctx context.Context) (*persistence.Snapshot, error)
}

// SnapshotHandler serves the full snapshot every terminal pulls
type SnapshotHandler struct {
	BaseHandler
	source SnapshotSource
}

// NewSnapshotHandler creates a new SnapshotHandler
func NewSnapshotHandler(source SnapshotSource) *SnapshotHandler {
	return &SnapshotHandler{source: source}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SnapshotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/snapshot", h.Get)
}

// Get returns profile, users, catalog, recent sales and open lines
func (h *SnapshotHandler) Get(c *gin.Context) {
	snap, err := h.source.Read(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := dto.SnapshotDTO{
		Profile:    dto.NewProfileDTO(snap.Profile),
		Users:      make([]dto.UserDTO, 0, len(snap.Users)),
		Categories: make([]dto.CategoryDTO, 0, len(snap.Categories)),
		Products:   make([]dto.ProductDTO, 0, len(snap.Products)),
		Sales:      make([]dto.SaleDTO, 0, len(snap.Sales)),
		Lines:      make([]dto.LineDTO, 0, len(snap.Lines)),
	}
	for _, u := range snap.Users {
		out.Users = append(out.Users, dto.NewUserDTO(u))
	}
	for _, cat := range snap.Categories {
		out.Categories = append(out.Categories, dto.NewCategoryDTO(cat))
	}
	for _, p := range snap.Products {
		out.Products = append(out.Products, dto.NewProductDTO(p))
	}
	for _, s := range snap.Sales {
		out.Sales = append(out.Sales, dto.NewSaleDTO(s))
	}
	for i := range snap.Lines {
		out.Lines = append(out.Lines, lineDTO(&snap.Lines[i]))
	}
	h.Success(c, out)
}

func lineDTO(m *models.OrderLineModel) dto.LineDTO {
	return dto.LineDTO{
		ID:           m.ID,
		TableID:      m.TableID,
		ProductID:    m.ProductID,
		Quantity:     m.Quantity,
		UserID:       m.UserID,
		Note:         m.Note,
		Status:       m.Status,
		Mode:         m.Mode,
		CustomerName: m.CustomerName,
		CreatedAt:    m.CreatedAt,
	}
}
