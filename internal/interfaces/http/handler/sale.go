package handler

import (
	"context"

	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SaleStore commits sales
type SaleStore interface {
	Commit(ctx context.Context, s sale.Sale) (string, int64, error)
}

// SaleHandler settles tables
type SaleHandler struct {
	BaseHandler
	sales SaleStore
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales SaleStore) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sales", h.Commit)
}

// Commit stores the sale, assigns its durable sequence and clears the table
func (h *SaleHandler) Commit(c *gin.Context) {
	var req dto.SaleDTO
	if !h.BindJSON(c, &req) {
		return
	}
	s := req.ToDomain()
	if s.UserID == "" {
		s.UserID = userID(c)
	}

	id, seq, err := h.sales.Commit(c.Request.Context(), s)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.FromContext(c.Request.Context()).Info("sale committed",
		zap.String("sale_id", id),
		zap.Int64("sequence", seq),
		zap.String("table", s.TableID),
		zap.String("total", s.Total.StringFixed(2)),
	)
	h.Created(c, dto.SaleAckDTO{ID: id, Sequence: seq})
}
