package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/commercelab/mollie-sync/internal/models"
	"github.com/commercelab/mollie-sync/internal/mollie"
)

// Gateway is the slice of the PSP client the services consume; the concrete
// implementation is *mollie.Client.
type Gateway interface {
	CreatePayment(ctx context.Context, req *mollie.PaymentRequest) (*mollie.Payment, error)
	CreateOrder(ctx context.Context, req *mollie.OrderRequest) (*mollie.Order, error)
	GetPayment(ctx context.Context, id string) (*mollie.Payment, error)
	GetOrder(ctx context.Context, id string) (*mollie.Order, error)
	ShipOrder(ctx context.Context, id string) (*mollie.Shipment, error)
	ListMethods(ctx context.Context) ([]mollie.Method, error)
}

// StatusMailer sends the customer-facing status mail when a local status
// write changes the order. The default implementation only logs; the shop's
// mail pipeline plugs in here.
type StatusMailer interface {
	SendStatusMail(ctx context.Context, order models.Order, status string)
}

type logMailer struct{ log *slog.Logger }

func NewLogMailer(log *slog.Logger) StatusMailer { return &logMailer{log: log} }

func (m *logMailer) SendStatusMail(_ context.Context, order models.Order, status string) {
	m.log.Info("status mail", "order", order.ID, "number", order.Number, "status", status)
}

// orderLocks serializes reconciliation per order id: the fully-X aggregation
// and the status write are not safe under interleaved writers.
type orderLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newOrderLocks() *orderLocks {
	return &orderLocks{m: make(map[string]*sync.Mutex)}
}

func (l *orderLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
