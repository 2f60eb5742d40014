package repository

import (
	"context"
	"errors"

	"github.com/commercelab/mollie-sync/internal/models"
)

var ErrNotFound = errors.New("repository: not found")

// Store bundles every repository behind one handle. WithTx yields a
// transaction-scoped Store so a reconciliation run's writes commit together.
type Store interface {
	Orders() Orders
	Transactions() Transactions
	OrderLines() OrderLines
	Stock() Stock
	Baskets() Baskets
	Vouchers() Vouchers
	Customers() Customers
	WithTx(ctx context.Context, fn func(Store) error) error
}

type Orders interface {
	GetByID(ctx context.Context, id string) (models.Order, error)
	// GetWithDetails loads the order including its detail lines.
	GetWithDetails(ctx context.Context, id string) (models.Order, error)
	Save(ctx context.Context, o models.Order) error
	SetPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error
	SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
	RemoveDetail(ctx context.Context, detailID string) error
	SetDetailQuantity(ctx context.Context, detailID string, quantity int) error
}

type Transactions interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	// MostRecentForOrder returns the latest created transaction for the
	// order; that transaction is the authoritative one for status purposes.
	MostRecentForOrder(ctx context.Context, orderID string) (models.Transaction, error)
	// ListForOrder returns every checkout attempt of the order, newest
	// first.
	ListForOrder(ctx context.Context, orderID string) ([]models.Transaction, error)
	Save(ctx context.Context, t models.Transaction) error
	AddItems(ctx context.Context, items []models.TransactionItem) error
	ItemsFor(ctx context.Context, transactionID string) ([]models.TransactionItem, error)
	// ListUndecided returns latest transactions of orders whose payment
	// status is still open or delayed, for the periodic sweep.
	ListUndecided(ctx context.Context, limit int) ([]models.Transaction, error)
}

type OrderLines interface {
	Create(ctx context.Context, l models.OrderLine) (models.OrderLine, error)
	ListForTransaction(ctx context.Context, transactionID string) ([]models.OrderLine, error)
}

type Stock interface {
	GetArticle(ctx context.Context, number string) (models.Article, error)
	AddStock(ctx context.Context, number string, delta int) error
}

type Baskets interface {
	Clear(ctx context.Context, sessionID string) error
	AddArticle(ctx context.Context, sessionID, articleNumber string, quantity int) error
	AddVoucher(ctx context.Context, sessionID, code string) error
	Lines(ctx context.Context, sessionID string) ([]models.BasketLine, error)
	// Refresh recomputes derived basket state after restore.
	Refresh(ctx context.Context, sessionID string) error
}

type Vouchers interface {
	GetByID(ctx context.Context, id string) (models.Voucher, error)
}

type Customers interface {
	GetByID(ctx context.Context, id string) (models.Customer, error)
}
