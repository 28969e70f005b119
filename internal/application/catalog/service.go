// Package catalog manages the menu and the business profile. Unlike order
// edits these calls are synchronous: the operator waits for the server's
// answer, and every rule is checked against the mirror first.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chrisfalcon1208/apprest/internal/application/mirror"
	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/shared"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
	"go.uber.org/zap"
)

// Refresher schedules a snapshot pull after a successful change
type Refresher interface {
	RequestRefresh()
}

// SessionEnder discards a session whose credential the server rejected
type SessionEnder interface {
	ForceLogout(reason error)
}

// Service handles catalog and profile operations
type Service struct {
	store    *mirror.Store
	gw       remote.Gateway
	refresh  Refresher
	sessions SessionEnder
	logger   *zap.Logger
}

// NewService creates a new catalog Service
func NewService(store *mirror.Store, gw remote.Gateway, refresh Refresher, sessions SessionEnder, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		gw:       gw,
		refresh:  refresh,
		sessions: sessions,
		logger:   logger.Named("catalog"),
	}
}

// Categories lists categories, optionally of one kind
func (s *Service) Categories(kind catalog.Kind) []catalog.Category {
	all := s.store.Categories()
	if kind == "" {
		return all
	}
	out := all[:0]
	for _, c := range all {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Products lists products, optionally of one category
func (s *Service) Products(categoryID string) []catalog.Product {
	all := s.store.Products()
	if categoryID == "" {
		return all
	}
	out := all[:0]
	for _, p := range all {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// SaveCategory creates the category when its id is empty and updates it
// otherwise. It returns the category as stored.
func (s *Service) SaveCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	if err := c.Validate(); err != nil {
		return catalog.Category{}, err
	}
	if !s.store.Loaded() {
		return catalog.Category{}, shared.ErrNotLoaded
	}

	existing := s.store.Categories()
	if c.ID != "" && !hasCategory(existing, c.ID) {
		return catalog.Category{}, shared.NewDomainError("NOT_FOUND", "Category not found")
	}
	if err := catalog.CheckCategoryUnique(existing, c); err != nil {
		return catalog.Category{}, err
	}

	id, err := s.gw.SaveCategory(ctx, c)
	if err != nil {
		return catalog.Category{}, s.fail("save category", err)
	}
	c.ID = id
	s.logger.Info("category saved", zap.String("category_id", id), zap.String("name", c.Name))
	s.refresh.RequestRefresh()
	return c, nil
}

// DeleteCategory removes a category no product references
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if !s.store.Loaded() {
		return shared.ErrNotLoaded
	}
	if !hasCategory(s.store.Categories(), id) {
		return shared.NewDomainError("NOT_FOUND", "Category not found")
	}
	if err := catalog.CheckCategoryDeletable(s.store.Products(), id); err != nil {
		return err
	}

	if err := s.gw.DeleteCategory(ctx, id); err != nil {
		return s.fail("delete category", err)
	}
	s.logger.Info("category deleted", zap.String("category_id", id))
	s.refresh.RequestRefresh()
	return nil
}

// SaveProduct creates or updates a product
func (s *Service) SaveProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if err := p.Validate(); err != nil {
		return catalog.Product{}, err
	}
	if !s.store.Loaded() {
		return catalog.Product{}, shared.ErrNotLoaded
	}

	if !hasCategory(s.store.Categories(), p.CategoryID) {
		return catalog.Product{}, shared.NewDomainError("INVALID_INPUT", "Product category does not exist")
	}
	existing := s.store.Products()
	if p.ID != "" {
		if _, ok := s.store.Product(p.ID); !ok {
			return catalog.Product{}, shared.ErrProductNotFound
		}
	}
	if err := catalog.CheckProductCodeUnique(existing, p); err != nil {
		return catalog.Product{}, err
	}

	id, err := s.gw.SaveProduct(ctx, p)
	if err != nil {
		return catalog.Product{}, s.fail("save product", err)
	}
	p.ID = id
	s.logger.Info("product saved", zap.String("product_id", id), zap.String("code", p.Code))
	s.refresh.RequestRefresh()
	return p, nil
}

// DeleteProduct removes a product. Settled sales keep their own copy of it.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if !s.store.Loaded() {
		return shared.ErrNotLoaded
	}
	if _, ok := s.store.Product(id); !ok {
		return shared.ErrProductNotFound
	}

	if err := s.gw.DeleteProduct(ctx, id); err != nil {
		return s.fail("delete product", err)
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	s.refresh.RequestRefresh()
	return nil
}

// SaveProfile replaces the business profile. The table count cannot drop
// below a table that still has an open order.
func (s *Service) SaveProfile(ctx context.Context, p venue.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	if err := p.Validate(); err != nil {
		return err
	}
	for _, l := range s.store.AllLines() {
		if !p.ValidTable(l.TableID) {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Table %s still has an open order", l.TableID))
		}
	}

	if err := s.gw.SaveProfile(ctx, p); err != nil {
		return s.fail("save profile", err)
	}
	s.logger.Info("business profile saved", zap.Int("tables", p.TableCount))
	s.refresh.RequestRefresh()
	return nil
}

// fail translates a gateway failure. Refusals the server explains become
// domain errors; anything else is wrapped.
func (s *Service) fail(op string, err error) error {
	var f *remote.Failure
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		s.sessions.ForceLogout(err)
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &f) && f.Code == shared.ErrCategoryInUse.Code:
		return shared.ErrCategoryInUse
	case errors.Is(err, remote.ErrNotFound):
		return shared.ErrNotFound
	case errors.As(err, &f) && remote.IsDefinitive(err) && f.Code != "":
		return shared.NewDomainError(f.Code, f.Message)
	}
	s.logger.Warn("catalog request failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func hasCategory(categories []catalog.Category, id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
