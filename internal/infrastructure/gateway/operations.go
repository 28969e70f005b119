package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"github.com/chrisfalcon1208/apprest/internal/interfaces/http/dto"
)

// Login exchanges credentials for a session. It is the only unauthenticated
// call.
func (g *HTTPGateway) Login(ctx context.Context, creds remote.Credentials) (remote.Session, error) {
	var out dto.LoginResponse
	if err := g.do(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: creds.Email, Password: creds.Password}, &out, false); err != nil {
		return remote.Session{}, err
	}
	return remote.Session{Token: out.Token, User: out.User.ToDomain(), ExpiresAt: out.ExpiresAt}, nil
}

// Logout revokes the current credential server-side
func (g *HTTPGateway) Logout(ctx context.Context) error {
	return g.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
}

// FetchSnapshot pulls the full authoritative state
func (g *HTTPGateway) FetchSnapshot(ctx context.Context) (*remote.Snapshot, error) {
	var out dto.SnapshotDTO
	if err := g.do(ctx, http.MethodGet, "/snapshot", nil, &out, true); err != nil {
		return nil, err
	}
	return snapshotFromDTO(out)
}

func snapshotFromDTO(d dto.SnapshotDTO) (*remote.Snapshot, error) {
	snap := &remote.Snapshot{
		Profile:    d.Profile.ToDomain(),
		Users:      make([]identity.User, 0, len(d.Users)),
		Categories: make([]catalog.Category, 0, len(d.Categories)),
		Products:   make([]catalog.Product, 0, len(d.Products)),
		Sales:      make([]sale.Sale, 0, len(d.Sales)),
		Lines:      make([]remote.LineRecord, 0, len(d.Lines)),
	}
	for _, u := range d.Users {
		snap.Users = append(snap.Users, u.ToDomain())
	}
	for _, c := range d.Categories {
		if c.ID == "" {
			return nil, malformed(http.StatusOK, "category %q has no id", c.Name)
		}
		snap.Categories = append(snap.Categories, c.ToDomain())
	}
	for _, p := range d.Products {
		if p.ID == "" {
			return nil, malformed(http.StatusOK, "product %q has no id", p.Code)
		}
		snap.Products = append(snap.Products, p.ToDomain())
	}
	for _, s := range d.Sales {
		if s.ID == "" || s.Sequence < 1 {
			return nil, malformed(http.StatusOK, "sale without id or sequence")
		}
		snap.Sales = append(snap.Sales, s.ToDomain())
	}
	for _, l := range d.Lines {
		if l.ID == "" {
			return nil, malformed(http.StatusOK, "order line on table %s has no id", l.TableID)
		}
		snap.Lines = append(snap.Lines, remote.LineRecord{
			ID:           l.ID,
			TableID:      l.TableID,
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			UserID:       l.UserID,
			Note:         l.Note,
			CreatedAt:    l.CreatedAt,
			Status:       order.Status(l.Status),
			Mode:         order.ParseMode(l.Mode),
			CustomerName: l.CustomerName,
		})
	}
	return snap, nil
}

// SaveCategory creates or updates a category and returns its id
func (g *HTTPGateway) SaveCategory(ctx context.Context, c catalog.Category) (string, error) {
	var out dto.IDResponse
	if err := g.do(ctx, http.MethodPost, "/categories", dto.NewCategoryDTO(c), &out, true); err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteCategory removes a category
func (g *HTTPGateway) DeleteCategory(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil, true)
}

// SaveProduct creates or updates a product and returns its id
func (g *HTTPGateway) SaveProduct(ctx context.Context, p catalog.Product) (string, error) {
	var out dto.IDResponse
	if err := g.do(ctx, http.MethodPost, "/products", dto.NewProductDTO(p), &out, true); err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteProduct removes a product
func (g *HTTPGateway) DeleteProduct(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil, true)
}

// SaveProfile overwrites the business profile
func (g *HTTPGateway) SaveProfile(ctx context.Context, p venue.Profile) error {
	return g.do(ctx, http.MethodPut, "/profile", dto.NewProfileDTO(p), nil, true)
}

// SaveLine creates a line when l.ID is empty, otherwise overwrites it
func (g *HTTPGateway) SaveLine(ctx context.Context, l remote.LineWrite) (string, error) {
	body := dto.LineDTO{
		ID:           l.ID,
		TableID:      l.TableID,
		ProductID:    l.ProductID,
		Quantity:     l.Quantity,
		UserID:       l.UserID,
		Note:         l.Note,
		Status:       string(l.Status),
		Mode:         string(l.Mode),
		CustomerName: l.CustomerName,
		CreatedAt:    l.CreatedAt,
	}
	var out dto.IDResponse
	if err := g.do(ctx, http.MethodPost, "/lines", body, &out, true); err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteLine removes one line
func (g *HTTPGateway) DeleteLine(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/lines/"+url.PathEscape(id), nil, nil, true)
}

// ClearTable removes every line of a table
func (g *HTTPGateway) ClearTable(ctx context.Context, tableID string) error {
	return g.do(ctx, http.MethodDelete, "/tables/"+url.PathEscape(tableID)+"/lines", nil, nil, true)
}

// SetLineStatus moves one line through the lifecycle
func (g *HTTPGateway) SetLineStatus(ctx context.Context, id string, status order.Status) error {
	return g.do(ctx, http.MethodPut, "/lines/"+url.PathEscape(id)+"/status", dto.StatusRequest{Status: string(status)}, nil, true)
}

// SetTableMeta writes customer and order-mode onto every line of a table
func (g *HTTPGateway) SetTableMeta(ctx context.Context, tableID string, meta order.TableMeta) error {
	body := dto.TableMetaRequest{CustomerName: meta.CustomerName, Mode: string(meta.Mode)}
	return g.do(ctx, http.MethodPut, "/tables/"+url.PathEscape(tableID)+"/meta", body, nil, true)
}

// CommitSale stores a sale and returns its server id and durable sequence
func (g *HTTPGateway) CommitSale(ctx context.Context, s sale.Sale) (remote.SaleAck, error) {
	var out dto.SaleAckDTO
	if err := g.do(ctx, http.MethodPost, "/sales", dto.NewSaleDTO(s), &out, true); err != nil {
		return remote.SaleAck{}, err
	}
	return remote.SaleAck{ID: out.ID, Sequence: out.Sequence}, nil
}
