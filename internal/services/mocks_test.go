package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/commercelab/mollie-sync/internal/models"
	"github.com/commercelab/mollie-sync/internal/mollie"
	repo "github.com/commercelab/mollie-sync/internal/repository"
)

// memStore is a map-backed repo.Store. WithTx runs the closure against the
// same maps; the tests assert observable behavior, not commit boundaries.
type memStore struct {
	mu sync.Mutex

	ordersByID  map[string]*models.Order
	txnsByID    map[string]*models.Transaction
	itemsByTxn  map[string][]models.TransactionItem
	orderLines  []models.OrderLine
	articles    map[string]*models.Article
	basketLines map[string][]models.BasketLine
	vouchers    map[string]models.Voucher
	customers   map[string]models.Customer
	refreshed   []string

	nextID int
}

func newMemStore() *memStore {
	return &memStore{
		ordersByID:  make(map[string]*models.Order),
		txnsByID:    make(map[string]*models.Transaction),
		itemsByTxn:  make(map[string][]models.TransactionItem),
		articles:    make(map[string]*models.Article),
		basketLines: make(map[string][]models.BasketLine),
		vouchers:    make(map[string]models.Voucher),
		customers:   make(map[string]models.Customer),
	}
}

func (m *memStore) genID() string {
	m.nextID++
	return "id-" + strconv.Itoa(m.nextID)
}

func (m *memStore) Orders() repo.Orders             { return (*memOrders)(m) }
func (m *memStore) Transactions() repo.Transactions { return (*memTransactions)(m) }
func (m *memStore) OrderLines() repo.OrderLines     { return (*memOrderLines)(m) }
func (m *memStore) Stock() repo.Stock               { return (*memStock)(m) }
func (m *memStore) Baskets() repo.Baskets           { return (*memBaskets)(m) }
func (m *memStore) Vouchers() repo.Vouchers         { return (*memVouchers)(m) }
func (m *memStore) Customers() repo.Customers       { return (*memCustomers)(m) }

func (m *memStore) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	return fn(m)
}

type memOrders memStore

func (m *memOrders) GetByID(_ context.Context, id string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[id]
	if !ok {
		return models.Order{}, repo.ErrNotFound
	}
	out := *o
	out.Details = nil
	return out, nil
}

func (m *memOrders) GetWithDetails(_ context.Context, id string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[id]
	if !ok {
		return models.Order{}, repo.ErrNotFound
	}
	out := *o
	out.Details = append([]models.OrderDetail(nil), o.Details...)
	return out, nil
}

func (m *memOrders) Save(_ context.Context, o models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.ordersByID[o.ID]
	if !ok {
		return repo.ErrNotFound
	}
	details := stored.Details
	*stored = o
	stored.Details = details
	return nil
}

func (m *memOrders) SetPaymentStatus(_ context.Context, orderID string, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (m *memOrders) SetOrderStatus(_ context.Context, orderID string, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.OrderStatus = status
	return nil
}

func (m *memOrders) RemoveDetail(_ context.Context, detailID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.ordersByID {
		for i, d := range o.Details {
			if d.ID == detailID {
				o.Details = append(o.Details[:i], o.Details[i+1:]...)
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

func (m *memOrders) SetDetailQuantity(_ context.Context, detailID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.ordersByID {
		for i := range o.Details {
			if o.Details[i].ID == detailID {
				o.Details[i].Quantity = quantity
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

type memTransactions memStore

func (m *memTransactions) Create(_ context.Context, t models.Transaction) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = (*memStore)(m).genID()
	}
	cp := t
	m.txnsByID[t.ID] = &cp
	return t, nil
}

func (m *memTransactions) GetByID(_ context.Context, id string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txnsByID[id]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return *t, nil
}

func (m *memTransactions) MostRecentForOrder(_ context.Context, orderID string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []*models.Transaction
	for _, t := range m.txnsByID {
		if t.OrderID != nil && *t.OrderID == orderID {
			found = append(found, t)
		}
	}
	if len(found) == 0 {
		return models.Transaction{}, repo.ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].ID > found[j].ID
		}
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
	return *found[0], nil
}

func (m *memTransactions) ListForOrder(_ context.Context, orderID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.txnsByID {
		if t.OrderID != nil && *t.OrderID == orderID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memTransactions) Save(_ context.Context, t models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txnsByID[t.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := t
	m.txnsByID[t.ID] = &cp
	return nil
}

func (m *memTransactions) AddItems(_ context.Context, items []models.TransactionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.itemsByTxn[it.TransactionID] = append(m.itemsByTxn[it.TransactionID], it)
	}
	return nil
}

func (m *memTransactions) ItemsFor(_ context.Context, transactionID string) ([]models.TransactionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TransactionItem(nil), m.itemsByTxn[transactionID]...), nil
}

func (m *memTransactions) ListUndecided(_ context.Context, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.txnsByID {
		if t.OrderID == nil {
			continue
		}
		o, ok := m.ordersByID[*t.OrderID]
		if !ok {
			continue
		}
		if o.PaymentStatus == models.PaymentOpen || o.PaymentStatus == models.PaymentDelayed {
			out = append(out, *t)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memOrderLines memStore

func (m *memOrderLines) Create(_ context.Context, l models.OrderLine) (models.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = (*memStore)(m).genID()
	}
	m.orderLines = append(m.orderLines, l)
	return l, nil
}

func (m *memOrderLines) ListForTransaction(_ context.Context, transactionID string) ([]models.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OrderLine
	for _, l := range m.orderLines {
		if l.TransactionID == transactionID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memStock memStore

func (m *memStock) GetArticle(_ context.Context, number string) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[number]
	if !ok {
		return models.Article{}, repo.ErrNotFound
	}
	return *a, nil
}

func (m *memStock) AddStock(_ context.Context, number string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[number]
	if !ok {
		return repo.ErrNotFound
	}
	a.InStock += delta
	return nil
}

type memBaskets memStore

func (m *memBaskets) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.basketLines[sessionID] = nil
	return nil
}

func (m *memBaskets) AddArticle(_ context.Context, sessionID, articleNumber string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.basketLines[sessionID] = append(m.basketLines[sessionID], models.BasketLine{
		SessionID:     sessionID,
		ArticleNumber: articleNumber,
		Quantity:      quantity,
	})
	return nil
}

func (m *memBaskets) AddVoucher(_ context.Context, sessionID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.basketLines[sessionID] = append(m.basketLines[sessionID], models.BasketLine{
		SessionID:     sessionID,
		ArticleNumber: "voucher:" + code,
		Quantity:      1,
		VoucherMode:   true,
	})
	return nil
}

func (m *memBaskets) Lines(_ context.Context, sessionID string) ([]models.BasketLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BasketLine(nil), m.basketLines[sessionID]...), nil
}

func (m *memBaskets) Refresh(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, sessionID)
	return nil
}

type memVouchers memStore

func (m *memVouchers) GetByID(_ context.Context, id string) (models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok {
		return models.Voucher{}, repo.ErrNotFound
	}
	return v, nil
}

type memCustomers memStore

func (m *memCustomers) GetByID(_ context.Context, id string) (models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return models.Customer{}, repo.ErrNotFound
	}
	return c, nil
}

// mockGateway scripts the PSP: fixed responses per id, plus call recording.
type mockGateway struct {
	mu sync.Mutex

	payments map[string]*mollie.Payment
	orders   map[string]*mollie.Order

	paymentErr map[string]error
	orderErr   map[string]error

	createdPayments []*mollie.PaymentRequest
	createdOrders   []*mollie.OrderRequest

	shipErr   error
	shipCalls []string
	methods   []mollie.Method
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		payments:   make(map[string]*mollie.Payment),
		orders:     make(map[string]*mollie.Order),
		paymentErr: make(map[string]error),
		orderErr:   make(map[string]error),
	}
}

func (g *mockGateway) CreatePayment(_ context.Context, req *mollie.PaymentRequest) (*mollie.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdPayments = append(g.createdPayments, req)
	id := fmt.Sprintf("tr_%d", len(g.createdPayments))
	p := &mollie.Payment{Resource: "payment", ID: id, Status: "open"}
	p.Links.Checkout = &mollie.Link{Href: "https://psp.example/pay/" + id}
	g.payments[id] = p
	return p, nil
}

func (g *mockGateway) CreateOrder(_ context.Context, req *mollie.OrderRequest) (*mollie.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdOrders = append(g.createdOrders, req)
	id := fmt.Sprintf("ord_%d", len(g.createdOrders))
	o := &mollie.Order{Resource: "order", ID: id, Status: "created"}
	o.Links.Checkout = &mollie.Link{Href: "https://psp.example/order/" + id}
	for i := range req.Lines {
		o.Lines = append(o.Lines, mollie.OrderLine{ID: fmt.Sprintf("odl_%d_%d", len(g.createdOrders), i)})
	}
	g.orders[id] = o
	return o, nil
}

func (g *mockGateway) GetPayment(_ context.Context, id string) (*mollie.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.paymentErr[id]; err != nil {
		return nil, err
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, mollie.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (g *mockGateway) GetOrder(_ context.Context, id string) (*mollie.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.orderErr[id]; err != nil {
		return nil, err
	}
	o, ok := g.orders[id]
	if !ok {
		return nil, mollie.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (g *mockGateway) ShipOrder(_ context.Context, id string) (*mollie.Shipment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shipCalls = append(g.shipCalls, id)
	if g.shipErr != nil {
		return nil, g.shipErr
	}
	return &mollie.Shipment{Resource: "shipment", ID: "shp_1", OrderID: id}, nil
}

func (g *mockGateway) ListMethods(_ context.Context) ([]mollie.Method, error) {
	return g.methods, nil
}

// mockMailer records sent status mails.
type mockMailer struct {
	mu    sync.Mutex
	sent  []string
	calls int
}

func (m *mockMailer) SendStatusMail(_ context.Context, order models.Order, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.sent = append(m.sent, order.ID+":"+status)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
