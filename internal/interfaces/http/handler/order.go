package handler

import (
	"context"
	"net/http"

	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/persistence/models"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LineStore persists open order lines
type LineStore interface {
	Save(ctx context.Context, m *models.OrderLineModel) (string, error)
	Delete(ctx context.Context, id string) error
	ClearTable(ctx context.Context, tableID string) (int64, error)
	SetStatus(ctx context.Context, id, status string) error
	SetTableMeta(ctx context.Context, tableID, customerName, mode string) (int64, error)
}

// OrderHandler manages open order lines. Merging and find-or-create happen
// on the terminals; the server stores what it is told.
type OrderHandler struct {
	BaseHandler
	lines   LineStore
	profile ProfileStore
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(lines LineStore, profile ProfileStore) *OrderHandler {
	return &OrderHandler{lines: lines, profile: profile}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/lines", h.SaveLine)
	rg.DELETE("/lines/:id", h.DeleteLine)
	rg.PUT("/lines/:id/status", h.SetStatus)
	rg.DELETE("/tables/:table/lines", h.ClearTable)
	rg.PUT("/tables/:table/meta", h.SetTableMeta)
}

// checkTable rejects ids outside 1..TableCount
func (h *OrderHandler) checkTable(c *gin.Context, tableID string) bool {
	p, err := h.profile.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return false
	}
	if !p.ValidTable(tableID) {
		h.HandleError(c, shared.ErrInvalidTable)
		return false
	}
	return true
}

// SaveLine creates a line when the id is empty, otherwise overwrites it
func (h *OrderHandler) SaveLine(c *gin.Context) {
	var req dto.LineDTO
	if !h.BindJSON(c, &req) {
		return
	}
	if !h.checkTable(c, req.TableID) {
		return
	}
	if req.UserID == "" {
		req.UserID = userID(c)
	}

	m := &models.OrderLineModel{
		BaseModel:    models.BaseModel{ID: req.ID, CreatedAt: req.CreatedAt},
		TableID:      req.TableID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		UserID:       req.UserID,
		Note:         req.Note,
		Status:       req.Status,
		Mode:         req.Mode,
		CustomerName: req.CustomerName,
	}
	id, err := h.lines.Save(c.Request.Context(), m)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.IDResponse{ID: id})
}

// DeleteLine removes one line
func (h *OrderHandler) DeleteLine(c *gin.Context) {
	if err := h.lines.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetStatus moves one line through the lifecycle
func (h *OrderHandler) SetStatus(c *gin.Context) {
	var req dto.StatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.lines.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearTable removes every line of a table
func (h *OrderHandler) ClearTable(c *gin.Context) {
	table := c.Param("table")
	if !h.checkTable(c, table) {
		return
	}
	n, err := h.lines.ClearTable(c.Request.Context(), table)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.FromContext(c.Request.Context()).Info("table cleared", zap.String("table", table), zap.Int64("lines", n))
	c.Status(http.StatusNoContent)
}

// SetTableMeta writes customer and order-mode onto every line of the table
func (h *OrderHandler) SetTableMeta(c *gin.Context) {
	table := c.Param("table")
	var req dto.TableMetaRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if !h.checkTable(c, table) {
		return
	}
	if _, err := h.lines.SetTableMeta(c.Request.Context(), table, req.CustomerName, req.Mode); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
