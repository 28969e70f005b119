// Package remotetest provides an in-memory Gateway that behaves like the
// persistence service, for tests of the floor engine.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chrisfalcon1208/apprest/internal/application/remote"
	"github.com/chrisfalcon1208/apprest/internal/domain/catalog"
	"github.com/chrisfalcon1208/apprest/internal/domain/identity"
	"github.com/chrisfalcon1208/apprest/internal/domain/order"
	"github.com/chrisfalcon1208/apprest/internal/domain/sale"
	"github.com/chrisfalcon1208/apprest/internal/domain/venue"
)

// Gateway is a fake persistence service. The zero value is not usable; use New.
type Gateway struct {
	Tokens remote.TokenSource

	mu         sync.Mutex
	seq        int
	profile    venue.Profile
	users      map[string]identity.User
	passwords  map[string]string
	categories map[string]catalog.Category
	products   map[string]catalog.Product
	lines      map[string]remote.LineRecord
	lineOrder  []string
	sales      []sale.Sale
	validToken map[string]string
	failures   map[string][]error
	gates      map[string]chan struct{}
	calls      []string
}

// New creates a fake with a seeded profile and one admin user
func New(tables int) *Gateway {
	g := &Gateway{
		profile:    venue.Profile{Name: "Test Venue", TableCount: tables},
		users:      make(map[string]identity.User),
		passwords:  make(map[string]string),
		categories: make(map[string]catalog.Category),
		products:   make(map[string]catalog.Product),
		lines:      make(map[string]remote.LineRecord),
		validToken: make(map[string]string),
		failures:   make(map[string][]error),
		gates:      make(map[string]chan struct{}),
	}
	g.AddUser(identity.User{ID: "u-admin", Name: "Admin", Email: "admin@venue.test", Role: identity.RoleAdmin}, "secret")
	return g
}

// AddUser registers a user that can log in
func (g *Gateway) AddUser(u identity.User, password string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[u.ID] = u
	g.passwords[u.Email] = password
}

// SeedCategory stores a category directly
func (g *Gateway) SeedCategory(c catalog.Category) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.categories[c.ID] = c
}

// SeedProduct stores a product directly
func (g *Gateway) SeedProduct(p catalog.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.products[p.ID] = p
}

// SeedLine stores an open line directly, as another terminal would
func (g *Gateway) SeedLine(r remote.LineRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.lines[r.ID]; !ok {
		g.lineOrder = append(g.lineOrder, r.ID)
	}
	g.lines[r.ID] = r
}

// SeedSale stores a settled sale directly
func (g *Gateway) SeedSale(s sale.Sale) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sales = append(g.sales, s)
}

// IssueToken makes token valid, as if a login had happened elsewhere
func (g *Gateway) IssueToken(token, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validToken[token] = userID
}

// RevokeAll invalidates every issued token
func (g *Gateway) RevokeAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validToken = make(map[string]string)
}

// FailNext makes the next call of op return err. Calls queue up.
func (g *Gateway) FailNext(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = append(g.failures[op], err)
}

// Gate blocks every call of op until the returned function is called
func (g *Gateway) Gate(op string) (release func()) {
	ch := make(chan struct{})
	g.mu.Lock()
	g.gates[op] = ch
	g.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.gates, op)
			g.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns the operations performed so far, in order
func (g *Gateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// CountCalls returns how many times op was called
func (g *Gateway) CountCalls(op string) int {
	n := 0
	for _, c := range g.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// Lines returns the server's open lines of a table
func (g *Gateway) Lines(tableID string) []remote.LineRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []remote.LineRecord
	for _, id := range g.lineOrder {
		if r, ok := g.lines[id]; ok && r.TableID == tableID {
			out = append(out, r)
		}
	}
	return out
}

// Sales returns the committed sales
func (g *Gateway) Sales() []sale.Sale {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sale.Sale(nil), g.sales...)
}

// Categories returns the stored categories
func (g *Gateway) Categories() []catalog.Category {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]catalog.Category, 0, len(g.categories))
	for _, c := range g.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// enter records the call, waits on its gate and applies auth and injected
// failures. It returns with g.mu held when err is nil.
func (g *Gateway) enter(ctx context.Context, op string, auth bool) error {
	g.mu.Lock()
	g.calls = append(g.calls, op)
	gate := g.gates[op]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return fmt.Errorf("%s: %w: %v", op, remote.ErrTransport, ctx.Err())
		}
	}

	g.mu.Lock()
	if auth {
		token, ok := "", false
		if g.Tokens != nil {
			token, ok = g.Tokens.Token()
		}
		if !ok {
			g.mu.Unlock()
			return remote.ErrNoSession
		}
		if _, valid := g.validToken[token]; !valid {
			g.mu.Unlock()
			return &remote.Failure{Kind: remote.ErrUnauthorized, Status: 401, Code: "UNAUTHORIZED", Message: "invalid token"}
		}
	}
	if q := g.failures[op]; len(q) > 0 {
		err := q[0]
		g.failures[op] = q[1:]
		g.mu.Unlock()
		return err
	}
	return nil
}

func (g *Gateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func notFound(what, id string) error {
	return &remote.Failure{Kind: remote.ErrNotFound, Status: 404, Code: "NOT_FOUND", Message: what + " " + id + " not found"}
}

// Login implements remote.Gateway
func (g *Gateway) Login(ctx context.Context, creds remote.Credentials) (remote.Session, error) {
	if err := g.enter(ctx, "Login", false); err != nil {
		return remote.Session{}, err
	}
	defer g.mu.Unlock()
	if pw, ok := g.passwords[creds.Email]; !ok || pw != creds.Password {
		return remote.Session{}, &remote.Failure{Kind: remote.ErrUnauthorized, Status: 401, Code: "INVALID_CREDENTIALS", Message: "invalid credentials"}
	}
	var user identity.User
	for _, u := range g.users {
		if u.Email == creds.Email {
			user = u
		}
	}
	token := g.nextID("token")
	g.validToken[token] = user.ID
	return remote.Session{Token: token, User: user, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// Logout implements remote.Gateway
func (g *Gateway) Logout(ctx context.Context) error {
	if err := g.enter(ctx, "Logout", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	token, _ := g.Tokens.Token()
	delete(g.validToken, token)
	return nil
}

// FetchSnapshot implements remote.Gateway
func (g *Gateway) FetchSnapshot(ctx context.Context) (*remote.Snapshot, error) {
	if err := g.enter(ctx, "FetchSnapshot", true); err != nil {
		return nil, err
	}
	defer g.mu.Unlock()

	snap := &remote.Snapshot{Profile: g.profile}
	for _, u := range g.users {
		snap.Users = append(snap.Users, u)
	}
	for _, c := range g.categories {
		snap.Categories = append(snap.Categories, c)
	}
	for _, p := range g.products {
		snap.Products = append(snap.Products, p)
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].ID < snap.Users[j].ID })
	sort.Slice(snap.Categories, func(i, j int) bool { return snap.Categories[i].ID < snap.Categories[j].ID })
	sort.Slice(snap.Products, func(i, j int) bool { return snap.Products[i].ID < snap.Products[j].ID })
	for _, id := range g.lineOrder {
		if r, ok := g.lines[id]; ok {
			snap.Lines = append(snap.Lines, r)
		}
	}
	for _, s := range g.sales {
		c := s
		c.Details = append([]sale.DetailLine(nil), s.Details...)
		snap.Sales = append(snap.Sales, c)
	}
	return snap, nil
}

// SaveCategory implements remote.Gateway
func (g *Gateway) SaveCategory(ctx context.Context, c catalog.Category) (string, error) {
	if err := g.enter(ctx, "SaveCategory", true); err != nil {
		return "", err
	}
	defer g.mu.Unlock()
	if c.ID == "" {
		c.ID = g.nextID("cat")
	} else if _, ok := g.categories[c.ID]; !ok {
		return "", notFound("category", c.ID)
	}
	g.categories[c.ID] = c
	return c.ID, nil
}

// DeleteCategory implements remote.Gateway
func (g *Gateway) DeleteCategory(ctx context.Context, id string) error {
	if err := g.enter(ctx, "DeleteCategory", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	for _, p := range g.products {
		if p.CategoryID == id {
			return &remote.Failure{Kind: remote.ErrConflict, Status: 409, Code: "CATEGORY_IN_USE", Message: "category in use"}
		}
	}
	delete(g.categories, id)
	return nil
}

// SaveProduct implements remote.Gateway
func (g *Gateway) SaveProduct(ctx context.Context, p catalog.Product) (string, error) {
	if err := g.enter(ctx, "SaveProduct", true); err != nil {
		return "", err
	}
	defer g.mu.Unlock()
	if p.ID == "" {
		p.ID = g.nextID("prod")
	} else if _, ok := g.products[p.ID]; !ok {
		return "", notFound("product", p.ID)
	}
	g.products[p.ID] = p
	return p.ID, nil
}

// DeleteProduct implements remote.Gateway
func (g *Gateway) DeleteProduct(ctx context.Context, id string) error {
	if err := g.enter(ctx, "DeleteProduct", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	delete(g.products, id)
	return nil
}

// SaveProfile implements remote.Gateway
func (g *Gateway) SaveProfile(ctx context.Context, p venue.Profile) error {
	if err := g.enter(ctx, "SaveProfile", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	g.profile = p
	return nil
}

// SaveLine implements remote.Gateway
func (g *Gateway) SaveLine(ctx context.Context, l remote.LineWrite) (string, error) {
	if err := g.enter(ctx, "SaveLine", true); err != nil {
		return "", err
	}
	defer g.mu.Unlock()
	id := l.ID
	if id == "" {
		id = g.nextID("line")
		g.lineOrder = append(g.lineOrder, id)
	} else if _, ok := g.lines[id]; !ok {
		return "", notFound("order line", id)
	}
	created := l.CreatedAt
	if prev, ok := g.lines[id]; ok && created.IsZero() {
		created = prev.CreatedAt
	}
	g.lines[id] = remote.LineRecord{
		ID: id, TableID: l.TableID, ProductID: l.ProductID, Quantity: l.Quantity,
		UserID: l.UserID, Note: l.Note, CreatedAt: created, Status: l.Status,
		Mode: l.Mode, CustomerName: l.CustomerName,
	}
	return id, nil
}

// DeleteLine implements remote.Gateway
func (g *Gateway) DeleteLine(ctx context.Context, id string) error {
	if err := g.enter(ctx, "DeleteLine", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	delete(g.lines, id)
	return nil
}

// ClearTable implements remote.Gateway
func (g *Gateway) ClearTable(ctx context.Context, tableID string) error {
	if err := g.enter(ctx, "ClearTable", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	g.clearLocked(tableID)
	return nil
}

func (g *Gateway) clearLocked(tableID string) {
	for id, r := range g.lines {
		if r.TableID == tableID {
			delete(g.lines, id)
		}
	}
}

// SetLineStatus implements remote.Gateway
func (g *Gateway) SetLineStatus(ctx context.Context, id string, status order.Status) error {
	if err := g.enter(ctx, "SetLineStatus", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	r, ok := g.lines[id]
	if !ok {
		return notFound("order line", id)
	}
	r.Status = status
	g.lines[id] = r
	return nil
}

// SetTableMeta implements remote.Gateway
func (g *Gateway) SetTableMeta(ctx context.Context, tableID string, meta order.TableMeta) error {
	if err := g.enter(ctx, "SetTableMeta", true); err != nil {
		return err
	}
	defer g.mu.Unlock()
	for id, r := range g.lines {
		if r.TableID == tableID {
			r.CustomerName = meta.CustomerName
			r.Mode = meta.Mode
			g.lines[id] = r
		}
	}
	return nil
}

// CommitSale implements remote.Gateway. Like the real service it assigns the
// sequence and clears the table in one step.
func (g *Gateway) CommitSale(ctx context.Context, s sale.Sale) (remote.SaleAck, error) {
	if err := g.enter(ctx, "CommitSale", true); err != nil {
		return remote.SaleAck{}, err
	}
	defer g.mu.Unlock()
	var max int64
	for _, existing := range g.sales {
		if existing.Sequence > max {
			max = existing.Sequence
		}
	}
	s.ID = g.nextID("sale")
	s.LocalID = s.ID
	s.Sequence = max + 1
	s.Acked = true
	s.Details = append([]sale.DetailLine(nil), s.Details...)
	for i := range s.Details {
		s.Details[i].SaleID = s.ID
		if strings.TrimSpace(s.Details[i].ID) == "" {
			s.Details[i].ID = g.nextID("detail")
		}
	}
	g.sales = append(g.sales, s)
	g.clearLocked(s.TableID)
	return remote.SaleAck{ID: s.ID, Sequence: s.Sequence}, nil
}

var _ remote.Gateway = (*Gateway)(nil)
